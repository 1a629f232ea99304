// Package git implements driven.VersionControl by shelling out to the git
// binary. Working trees are plain clones; blame output is read in
// --line-porcelain form so every line carries its own commit header.
package git
