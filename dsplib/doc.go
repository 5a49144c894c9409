// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package dsplib provides a library of reusable sample components for
// dspatch: counters, arithmetic, pass-throughs, and probes, all of the
// kind a circuit's own tests wire together rather than anything a real
// pipeline would ship. Each type here only implements dspatch.Processor;
// callers are responsible for calling SetInputCount/SetOutputCount on the
// *dspatch.Component returned by Circuit.AddComponent, using the input and
// output counts documented on each type.
package dsplib
