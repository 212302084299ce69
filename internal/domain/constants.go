package domain

const (
	DefaultHTTPListenAddress          = "0.0.0.0:8080"
	DefaultObservabilityListenAddress = "0.0.0.0:9090"
	DefaultDatabasePath               = "parishd.db"
	DefaultInboxPath                  = "inbox.db"
	DefaultHeartbeatSeconds           = 30
	DefaultFeedBuffer                 = 256
	DefaultStreamBuffer               = 16
	DefaultListPageSize               = 20
	MaxListPageSize                   = 100
)
