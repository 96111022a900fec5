package cfg

type Cfg struct {
	// Database configuration
	DBDriver string
	DBDSN    string

	// Source configuration
	SourcesDir        string
	OpenFDAKey        string
	RegulationsGovKey string
	BatchSize         int

	// Application configuration
	Port              string
	BaseUrl           string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string

	// Coordination and delivery
	RedisAddr    string
	LockTTL      int
	KafkaBrokers []string
	KafkaTopic   string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
