// Package jsdocconf reads and rewrites the generator's JSON configuration.
//
// Only source.include and templates.default.layoutFile are interpreted.
// Every other key is carried through rewrites untouched in meaning.
package jsdocconf
