// Package plugins hosts the rule packs installed into a core.Project. It
// contains no runtime code itself; this file anchors the architecture guard
// that lives alongside it.
//
// Each subpackage exposes a Plugin with Name, Version and Register and
// depends only on porenet/internal/core:
//
//	conductance  edge conductances from the series-resistors pattern
//	mixture      mixing rules over the components of a mixture phase
package plugins
