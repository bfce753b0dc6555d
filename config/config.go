package config

// Path config
const (
	LogPath    = "./logs/"
	ConfigPath = "./"
)

// Detection config
const (
	// Default detector thresholds. Values are decimal strings so the
	// detector can parse them into arbitrary-precision decimals; binary
	// floats would drift across the chained ratio computations.
	SANDWICH_MIN_PRICE_IMPACT_PCT = "1.0"  // percent
	SANDWICH_MIN_PROFIT_THRESHOLD = "0.01" // in profit-token units
	SANDWICH_CONFIDENCE_THRESHOLD = "0.7"
	SANDWICH_MAX_BLOCK_DISTANCE   = 1 // frontrun and backrun in the same block by default
	DETECT_BLOCK_PARALLEL_NUM     = 8 // number of blocks processed in parallel by the detect command
)

// Analysis config
const (
	ANALYZER_TOP_N = 10 // leaderboard size for attackers, pools and token pairs

	SOPHISTICATED_MIN_ATTACKS      = 5
	SOPHISTICATED_MIN_TOTAL_PROFIT = "1.0"

	CLUSTER_BLOCK_WINDOW = 100 // max block gap between attacks in one cluster

	MEV_BOT_MIN_SWAP_FREQUENCY = 3 // swaps per address before it is flagged as a likely bot
)
