// Package file loads the tracker configuration from a YAML or TOML file.
//
// The format is chosen by extension (.toml for TOML, anything else YAML).
// Raw entries are resolved once at load into domain.Source values, so the
// rest of the program never sees optional or shorthand forms:
//
//	sources:
//	  sindresorhus/awesome:          # README.md, list format
//	  acme/list:
//	    category: Tools
//	    default_branch: main
//	    files:
//	      README.md:
//	        index: true
//	      docs/TABLE.md:
//	        options:
//	          type: table
//	        id_strategy: firstLink
package file
