// Package config finds the project's .kadai directory and loads its
// config.toml.
//
// # Discovery
//
// FindProjectDir walks up from the working directory until it finds a
// directory named .kadai. Load then reads .kadai/config.toml; a missing file
// yields defaults.
//
// # Keys
//
//	actions_dir      = "actions"          # relative to .kadai
//	auto_navigate    = "database/seed"    # menu or action opened at startup
//	new_window_days  = 7                  # 0 disables the "New" section
//	refresh_minutes  = 0                  # 0 refreshes sources only at startup
//	cache_dir        = "~/.cache/kadai"
//	org              = "acme"             # share default path actions/@acme/<user>
//	user             = "sam"              # defaults to $USER
//
//	[env]
//	DATABASE_URL = "postgres://localhost/dev"
//
//	[interpreters]
//	python = "uv run"
//
//	[[sources]]
//	repo  = "acme/ops-actions"
//	label = "ops"                         # defaults to the repo name
//	ref   = "main"
//	path  = ".kadai/actions"
package config
