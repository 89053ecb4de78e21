package lbl

import (
	"fmt"
	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"github.com/pkg/errors"
	"io"
	"strings"
)

//FigureFormats maps figure file extensions to graphviz formats.
var FigureFormats = map[string]graphviz.Format{
	"png": graphviz.PNG,
	"svg": graphviz.SVG,
	"jpg": graphviz.JPG,
}

func describeWeakMachine(machine WeakMachine, weights []float64) string {
	var sb strings.Builder
	if stringer, ok := machine.(fmt.Stringer); ok {
		sb.WriteString(stringer.String())
	} else {
		sb.WriteString(fmt.Sprintln(machine.TypeString(), machine.FeatureIndices()))
	}
	if !strings.HasSuffix(sb.String(), "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString("weights: [")
	for ind, weight := range weights {
		if ind > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(fmt.Sprintf("%6.4g", weight))
	}
	sb.WriteString("]")
	return sb.String()
}

//DrawGraph builds a graph with the boosted machine at the root and one box per weak machine.
//The caller closes both results; on error nothing is left open.
func (b *BoostedMachine) DrawGraph() (graphViz *graphviz.Graphviz, graph *cgraph.Graph, err error) {
	if err = b.checkNotEmpty(); err != nil {
		return nil, nil, err
	}
	graphViz = graphviz.New()
	defer func() {
		if err == nil {
			return
		}
		if graph != nil {
			_ = graph.Close()
		}
		_ = graphViz.Close()
		graphViz, graph = nil, nil
	}()

	graph, err = graphViz.Graph()
	if err != nil {
		return graphViz, nil, errors.Wrap(err, "graphviz")
	}

	root, err := graph.CreateNode("BoostedMachine")
	if err != nil {
		return graphViz, graph, errors.Wrap(err, "graphviz")
	}
	root.Set("label", fmt.Sprintf("boosted machine\n%d weak machines, %d outputs", len(b.machines), b.outputs))

	for ind, machine := range b.machines {
		node, err := graph.CreateNode(MachineGroupName(ind))
		if err != nil {
			return graphViz, graph, errors.Wrap(err, "graphviz")
		}
		if _, err := graph.CreateEdge("", root, node); err != nil {
			return graphViz, graph, errors.Wrap(err, "graphviz")
		}
		node.Set("label", fmt.Sprintf("%s\n%s", MachineGroupName(ind), describeWeakMachine(machine, b.weightRow(ind))))
		node.Set("shape", "box")
	}
	return graphViz, graph, nil
}

//RenderGraph writes the graph of the machine in the given figure type.
func (b *BoostedMachine) RenderGraph(figureType string, w io.Writer) error {
	format, ok := FigureFormats[figureType]
	if !ok {
		return errors.Wrapf(ErrUnsupportedOperation, "figure type %q", figureType)
	}
	graphViz, graph, err := b.DrawGraph()
	if err != nil {
		return err
	}
	defer func() {
		_ = graph.Close()
		_ = graphViz.Close()
	}()
	return errors.Wrap(graphViz.Render(graph, format, w), "graphviz render")
}

//RenderGraphFile writes the graph of the machine into fileName.
func (b *BoostedMachine) RenderGraphFile(figureType, fileName string) error {
	format, ok := FigureFormats[figureType]
	if !ok {
		return errors.Wrapf(ErrUnsupportedOperation, "figure type %q", figureType)
	}
	graphViz, graph, err := b.DrawGraph()
	if err != nil {
		return err
	}
	defer func() {
		_ = graph.Close()
		_ = graphViz.Close()
	}()
	return errors.Wrap(graphViz.RenderFilename(graph, format, fileName), "graphviz render")
}
