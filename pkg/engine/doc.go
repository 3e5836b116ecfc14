// Package engine describes template-language definitions: how one file
// extension is compiled into a render function, how page data is gathered
// from an engine instance, and the uniform result type every render step
// produces.
package engine
