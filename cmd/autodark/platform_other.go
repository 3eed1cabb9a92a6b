//go:build !darwin && !windows && !linux

package main

import _ "github.com/darkawower/autodark/internal/platform/stub"
