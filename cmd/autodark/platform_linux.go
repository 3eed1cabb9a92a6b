package main

import _ "github.com/darkawower/autodark/internal/platform/linux"
