// Package config provides configuration structures and utilities for
// catalogsnap. It defines the main configuration options for crawling
// catalog sites, per-catalog overrides, and report generation preferences.
package config
