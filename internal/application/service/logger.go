package service

import "github.com/garyjia/finnexus/pkg/utils"

// Logger is the key/value logger the services write to
type Logger = utils.KVLogger

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

func orNop(l Logger) Logger {
	if l == nil {
		return nopLogger{}
	}
	return l
}
