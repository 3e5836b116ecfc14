// Package registry holds the active template-language definition for each
// extension together with the override chain behind it.
package registry
