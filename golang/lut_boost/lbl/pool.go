package lbl

import "sync"

//Task is a piece of work executed by a Pool worker.
type Task interface {
	Execute()
}

//Pool runs tasks on a fixed number of goroutines.
type Pool struct {
	tasks chan Task
	wg    sync.WaitGroup
}

//NewPool starts threadsNum workers.
func NewPool(threadsNum int) *Pool {
	if threadsNum < 1 {
		threadsNum = 1
	}
	pool := &Pool{tasks: make(chan Task, threadsNum)}
	pool.wg.Add(threadsNum)
	for ind := 0; ind < threadsNum; ind++ {
		go func() {
			defer pool.wg.Done()
			for task := range pool.tasks {
				task.Execute()
			}
		}()
	}
	return pool
}

//AddTask queues a task. It blocks while every worker is busy and the queue is full.
func (pool *Pool) AddTask(task Task) {
	pool.tasks <- task
}

//Close tells the workers that no more tasks will come.
func (pool *Pool) Close() {
	close(pool.tasks)
}

//WaitAll waits until the workers have finished every queued task. Call Close first.
func (pool *Pool) WaitAll() {
	pool.wg.Wait()
}

//runTasks executes the tasks in place for a single thread, or on a pool otherwise.
func runTasks(threadsNum int, tasks []Task) {
	if threadsNum <= 1 {
		for _, task := range tasks {
			task.Execute()
		}
		return
	}

	taskPool := NewPool(threadsNum)
	for _, task := range tasks {
		taskPool.AddTask(task)
	}
	taskPool.Close()
	taskPool.WaitAll()
}
