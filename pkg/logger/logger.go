// Package logger is a thin leveled wrapper over the standard log package.
// Debug output is off unless LOG_DEBUG is set, so webhook-heavy call flows
// don't flood production logs.
package logger

import (
	"log"
	"os"
	"sync/atomic"
)

var debugEnabled atomic.Bool

// Initialize logging flags (called once from main)
func Init() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	if v := os.Getenv("LOG_DEBUG"); v == "1" || v == "true" {
		debugEnabled.Store(true)
	}
}

func Infof(format string, v ...any) {
	log.Printf("[INFO] "+format, v...)
}

func Warnf(format string, v ...any) {
	log.Printf("[WARN] "+format, v...)
}

func Errorf(format string, v ...any) {
	log.Printf("[ERROR] "+format, v...)
}

func Debugf(format string, v ...any) {
	if !debugEnabled.Load() {
		return
	}
	log.Printf("[DEBUG] "+format, v...)
}

func Fatalf(format string, v ...any) {
	log.Fatalf("[FATAL] "+format, v...)
}
