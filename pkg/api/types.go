package api

// ConfigureRequest selects the process-wide language model.
type ConfigureRequest struct {
	Provider    string         `json:"provider"`
	Model       string         `json:"model"`
	APIKey      string         `json:"api_key,omitempty"`
	BaseURL     string         `json:"base_url,omitempty"`
	MaxTokens   *int           `json:"max_tokens,omitempty"`
	Temperature *float64       `json:"temperature,omitempty"`
	Options     map[string]any `json:"options,omitempty"`
}

type ConfigureResponse struct {
	Status   string `json:"status"`
	Model    string `json:"model"`
	Provider string `json:"provider"`
}

// RegisterRequest declares a signature under a name.
type RegisterRequest struct {
	Name         string `json:"name"`
	Signature    string `json:"signature"`
	Instructions string `json:"instructions,omitempty"`
}

type RegisterResponse struct {
	Status       string   `json:"status"`
	Name         string   `json:"name"`
	Fields       []string `json:"fields"`
	InputFields  []string `json:"input_fields"`
	OutputFields []string `json:"output_fields"`
	Instructions string   `json:"instructions"`
}

// PredictRequest runs a fresh or compiled module once.
type PredictRequest struct {
	SignatureName    string         `json:"signature_name"`
	Inputs           map[string]any `json:"inputs"`
	ModuleType       string         `json:"module_type,omitempty"`
	CompiledModuleID string         `json:"compiled_module_id,omitempty"`
}

type PredictResponse struct {
	Outputs   map[string]any `json:"outputs"`
	Reasoning string         `json:"reasoning,omitempty"`
}

// OptimizeRequest compiles a module from labeled examples.
type OptimizeRequest struct {
	SignatureName string           `json:"signature_name"`
	TrainData     []map[string]any `json:"train_data"`
	Metric        string           `json:"metric,omitempty"`
	Optimizer     string           `json:"optimizer,omitempty"`
	MaxBootstraps *int             `json:"max_bootstraps,omitempty"`
}

type OptimizeResponse struct {
	Status        string `json:"status"`
	ModuleID      string `json:"module_id"`
	NumBootstraps int    `json:"num_bootstraps"`
	NumDemos      int    `json:"num_demos"`
}

type HealthResponse struct {
	Status     string `json:"status"`
	Model      string `json:"model"`
	Signatures int    `json:"signatures"`
	Modules    int    `json:"modules"`
}

// ErrorBody is the payload of every failed call.
type ErrorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}
