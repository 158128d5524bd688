package utils

import "log"

func Log(fmt string, args ...interface{}) {
	log.Printf(fmt, args...)
}

// Warn logs a recoverable failure, e.g. an overflow tier error absorbed by the cache.
func Warn(fmt string, args ...interface{}) {
	log.Printf("[WARN] "+fmt, args...)
}

func Error(fmt string, args ...interface{}) {
	log.Printf("[ERROR] "+fmt, args...)
}
