// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package main

import (
	"log/slog"
	"os"

	"github.com/mfkiwl/dspatch"
	"github.com/mfkiwl/dspatch/dsplib"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	circuit := dspatch.NewCircuit()
	circuit.SetLogger(logger)

	count := circuit.AddComponent(dsplib.Counter(), dspatch.OutOfOrder)
	count.SetOutputCount(1, "out")

	prev := count
	for i := 1; i <= 5; i++ {
		off := circuit.AddComponent(dsplib.Offset(i), dspatch.OutOfOrder)
		off.SetInputCount(1, "in")
		off.SetOutputCount(1, "out")
		circuit.ConnectNamedOutToIn(prev, "out", off, "in")
		prev = off
	}

	probe := dsplib.NewProbe()
	probeComp := circuit.AddComponent(probe, dspatch.OutOfOrder)
	probeComp.SetInputCount(1, "in")
	circuit.ConnectNamedOutToIn(prev, "out", probeComp, "in")

	for i := 0; i < 100; i++ {
		circuit.Tick(dspatch.Series)
	}

	history := probe.History()
	logger.Info("serial chain complete", "ticks", len(history), "last", history[len(history)-1][0].Value)

	circuit.Close()
}
