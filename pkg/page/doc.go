// Package page is the template abstraction sitting on top of the dispatcher:
// it splits front matter from the body, assembles page data, renders single
// files, and builds whole directories.
package page
