// Package source loads declarative settings documents.
//
// A document maps target files to groups to keys to descriptors:
//
//	{
//	  "kdeglobals": {
//	    "General": {
//	      "ColorScheme": {"value": "BreezeDark"},
//	      "AccentColor": {"value": null}
//	    },
//	    "KDE": {
//	      "SingleClick": {"value": false, "immutable": true}
//	    }
//	  }
//	}
//
// Group paths use "/" for nesting and `\/` for a literal slash. A key may map
// directly to a scalar as shorthand for {"value": scalar}. Documents can be
// written as JSON, YAML or CUE; the format is chosen by file extension.
//
// Relative file paths are resolved against the config home with Resolve.
package source
