package auth

// LoggerProvider hands out named loggers
type LoggerProvider interface {
	GetLogger(name string) Logger
}

// LoggerProviderFunc adapts a function to the LoggerProvider interface
type LoggerProviderFunc func(name string) Logger

// GetLogger implements LoggerProvider
func (f LoggerProviderFunc) GetLogger(name string) Logger {
	if f == nil {
		return nil
	}
	return f(name)
}

// ResolveLogger picks the logger for name. A logger handed out by the
// provider wins, then the fallback, then the stdout default.
func ResolveLogger(name string, provider LoggerProvider, fallback Logger) (LoggerProvider, Logger) {
	var logger Logger
	if provider != nil {
		logger = provider.GetLogger(name)
	}

	if logger == nil {
		logger = fallback
	}

	if logger == nil {
		logger = defLogger{}
	}

	if provider == nil {
		provider = LoggerProviderFunc(func(string) Logger { return logger })
	} else if provider.GetLogger(name) == nil {
		inner := provider
		provider = LoggerProviderFunc(func(n string) Logger {
			if l := inner.GetLogger(n); l != nil {
				return l
			}
			return logger
		})
	}

	return provider, logger
}
