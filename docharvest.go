// Package docharvest harvests technical documentation from websites,
// source repositories and local files, splits it into overlapping fragments
// and streams the fragments into a vector index for similarity search.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, github/, goquery/).
package docharvest
