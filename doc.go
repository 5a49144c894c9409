// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

/*
Package dspatch provides a general-purpose dataflow runtime: a directed
graph of user-defined components that exchange dynamically typed signals
along wires and are driven by a circuit scheduler.

Each scheduler pass ("tick") propagates one logical sample of data from
source components through the graph to sink components. Components are
authored by implementing the Processor interface and registered with a
Circuit, which owns the wiring API, the buffer pool used for pipelining
ticks, and the Series/Parallel scheduling strategies.

The runtime supports feedback edges (a component reading its own, or an
upstream's, previous-tick output), dynamic rewiring while the circuit is
quiescent, and pipelining of multiple in-flight ticks across a configurable
number of buffers.
*/
package dspatch
