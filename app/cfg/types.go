package cfg

type Cfg struct {
	// Bluesky account configuration
	Identifier string
	Password   string
	ServiceURL string

	// Feed configuration
	FeedURL string

	// Application configuration
	DBPath      string
	OptionsFile string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
