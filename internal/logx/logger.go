package logx

import "go.uber.org/zap"

// New builds the service logger. LOG_LEVEL handling stays with zap's
// production defaults; callers add the service name as a field.
func New(service string) (*zap.Logger, error) {
	log, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return log.With(zap.String("service", service)), nil
}
