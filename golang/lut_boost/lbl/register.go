package lbl

func init() {
	if err := RegisterMachineType(StumpMachineType, func() WeakMachine { return &StumpMachine{} }); err != nil {
		panic(err)
	}
	if err := RegisterMachineType(LUTMachineType, func() WeakMachine { return &LUTMachine{} }); err != nil {
		panic(err)
	}

	if err := RegisterLoss(JesorskyLossName, func() LossFunction { return JesorskyLoss{} }); err != nil {
		panic(err)
	}
	if err := RegisterLoss(ExponentialLossName, func() LossFunction { return ExponentialLoss{} }); err != nil {
		panic(err)
	}
	if err := RegisterLoss(LogitLossName, func() LossFunction { return LogitLoss{} }); err != nil {
		panic(err)
	}
	if err := RegisterLoss(TangentialLossName, func() LossFunction { return TangentialLoss{} }); err != nil {
		panic(err)
	}
}
