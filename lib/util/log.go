package util

import "github.com/go-otbr/go-otbr/lib/util/logger"

var log = logger.GetOTBRLogger()
