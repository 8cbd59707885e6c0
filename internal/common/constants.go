package common

// Attribute options offered by the web form and used by the synthetic
// dataset generator.
var (
	BrandOptions    = []string{"Zara", "H&M", "Gucci", "Uniqlo", "Levi's"}
	CategoryOptions = []string{"Shirt", "Jeans", "Jacket", "T-shirt", "Sweater"}
	ColorOptions    = []string{"Black", "White", "Blue", "Red", "Green"}
	SizeOptions     = []string{"XS", "S", "M", "L", "XL"}
	MaterialOptions = []string{"Cotton", "Denim", "Wool", "Polyester", "Linen"}
	UsageOptions    = []int{0, 1, 2, 3, 4, 5}
)

// Environment variable keys
const (
	EnvConfigFile           = "CONFIG_FILE"
	EnvModelPath            = "MODEL_PATH"
	EnvModelsDir            = "MODELS_DIR"
	EnvDataPath             = "DATA_PATH"
	EnvListenPort           = "LISTEN_PORT"
	EnvMetricsPort          = "METRICS_PORT"
	EnvLogLevel             = "LOG_LEVEL"
	EnvPricingMode          = "PRICING_MODE"
	EnvExchangeRate         = "EXCHANGE_RATE"
	EnvDecimals             = "PRICE_DECIMALS"
	EnvDisplayCurrency      = "DISPLAY_CURRENCY"
	EnvModelCurrency        = "MODEL_CURRENCY"
	EnvRidgeAlpha           = "RIDGE_ALPHA"
	EnvTestFraction         = "TEST_FRACTION"
	EnvSplitSeed            = "SPLIT_SEED"
	EnvMissingFieldDefaults = "MISSING_FIELD_DEFAULTS"
	EnvReadTimeout          = "READ_TIMEOUT"
	EnvWriteTimeout         = "WRITE_TIMEOUT"
)

// Pricing modes
const (
	ModeDirect = "direct"
	ModeResale = "resale"
)

// Configuration defaults
const (
	DefaultModelPath       = "models/ridge_model.json"
	DefaultModelsDir       = "models"
	DefaultListenPort      = 5000
	DefaultMetricsPort     = 9100
	DefaultLogLevel        = "info"
	DefaultPricingMode     = ModeDirect
	DefaultExchangeRate    = 83.0 // display-currency units per model-currency unit
	DefaultDecimals        = 2
	DefaultDisplayCurrency = "INR"
	DefaultModelCurrency   = "USD"
	DefaultRidgeAlpha      = 1.0
	DefaultTestFraction    = 0.2
	DefaultSplitSeed       = 42
)

// Validation constants
const (
	MinPort         = 1024
	MaxPort         = 65535
	MaxDecimals     = 6
	MaxRidgeAlpha   = 1e6
	MaxTestFraction = 0.5
	MaxRequestBytes = 64 << 10 // prediction request bodies, JSON or form
)

// User-facing result strings
const (
	NotSellableMessage = "Item not sellable"
	ErrorPrefix        = "Error: "
)
