// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package dspatch

// Wire is an immutable edge record connecting one of a source component's
// outputs to one of a destination component's inputs. Wires are stored on
// the consumer (destination) side, one per declared input, and the source
// is a shared reference — Go's garbage collector reclaims wiring cycles
// without any need for weak back-edges.
type Wire struct {
	Source       *Component
	SourceOutput int
	DestInput    int
}

// connected reports whether w designates an actual connection.
func (w Wire) connected() bool {
	return w.Source != nil
}
