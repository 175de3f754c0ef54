// Package file reads flow definitions from YAML or JSON files.
//
// A flow file looks like:
//
//	id: welcome
//	name: Welcome Flow
//	active: true
//	nodes:
//	  - id: start
//	    type: start
//	    next: greet
//	  - id: greet
//	    type: decision
//	    content: "Hi {name}! Sales or Support?"
//	    next:
//	      Sales: sales
//	      Support: support
//
// A scalar `next` is a direct transition, a mapping is a set of labelled
// branches kept in declaration order, and an absent or null `next` is no
// transition. JSON files use the same shape.
package file
