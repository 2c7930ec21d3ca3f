// Package config loads settings for the gophcheck CLI.
//
// Sources are applied in order, later ones winning: built-in defaults, an
// optional JSON file named by -c/-config, GOPHCHECK_CLI_* environment
// variables, then the short flags -a, -s, -u and -t.
package config
