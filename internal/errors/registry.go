package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

const docBase = "https://suspense.vango.dev/errors/"

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Runtime Errors (E001-E039)
	// ============================================

	"E001": {
		Category: CategoryRuntime,
		Message:  "Suspense boundary panicked",
		Detail:   "Evaluating the children of a suspense boundary panicked. The render pass was aborted and the boundary's scope disposed.",
		DocURL:   docBase + "E001",
	},
	"E002": {
		Category: CategoryRuntime,
		Message:  "Suspense boundaries left unresolved",
		Detail:   "The render context ended before every pending boundary resolved.",
		DocURL:   docBase + "E002",
	},
	"E003": {
		Category: CategoryRuntime,
		Message:  "Resource fetch failed",
		Detail:   "A resource fetcher returned an error. The resource resolved with the error value.",
		DocURL:   docBase + "E003",
	},
	"E004": {
		Category: CategoryRuntime,
		Message:  "Event handler not found",
		Detail:   "No handler for this event is registered on the element with the given hydration key.",
		DocURL:   docBase + "E004",
	},
	"E005": {
		Category: CategoryRuntime,
		Message:  "Live view closed",
		Detail:   "The live view was disposed; it no longer renders or accepts events.",
		DocURL:   docBase + "E005",
	},

	// ============================================
	// Hydration Errors (E040-E059)
	// ============================================

	"E040": {
		Category: CategoryHydration,
		Message:  "Hydration key mismatch",
		Detail:   "The keys minted by the client differ from the keys in the server markup. The view renders differently on client and server.",
		DocURL:   docBase + "E040",
	},
	"E041": {
		Category: CategoryHydration,
		Message:  "Server markup unreadable",
		Detail:   "The server markup could not be tokenized or carries malformed keys.",
		DocURL:   docBase + "E041",
	},
	"E042": {
		Category: CategoryHydration,
		Message:  "Hydration mismatch: missing on client",
		Detail:   "The server markup contains nodes the client did not produce.",
		DocURL:   docBase + "E042",
	},
	"E043": {
		Category: CategoryHydration,
		Message:  "Hydration mismatch: missing on server",
		Detail:   "The client produced nodes that are absent from the server markup.",
		DocURL:   docBase + "E043",
	},
	"E044": {
		Category: CategoryHydration,
		Message:  "Hydration key not found",
		Detail:   "The hydration key referenced by an event does not exist in the live view.",
		DocURL:   docBase + "E044",
	},

	// ============================================
	// Stream Errors (E060-E079)
	// ============================================

	"E060": {
		Category: CategoryStream,
		Message:  "Chunk write failed",
		Detail:   "Writing a chunk to the response failed; the client has probably gone away.",
		DocURL:   docBase + "E060",
	},
	"E061": {
		Category: CategoryStream,
		Message:  "Response cannot be flushed",
		Detail:   "The response writer does not support flushing, so chunks are buffered until the response ends.",
		DocURL:   docBase + "E061",
	},

	// ============================================
	// Server Function Errors (E080-E099)
	// ============================================

	"E080": {
		Category: CategoryServerFn,
		Message:  "Could not find a server function at that route.",
		Detail:   "No server function is registered under the requested name.",
		DocURL:   docBase + "E080",
	},
	"E081": {
		Category: CategoryServerFn,
		Message:  "Server function failed",
		Detail:   "The server function returned an error.",
		DocURL:   docBase + "E081",
	},
	"E082": {
		Category: CategoryServerFn,
		Message:  "Invalid server function payload",
		Detail:   "The request body could not be decoded into the server function's arguments.",
		DocURL:   docBase + "E082",
	},
	"E083": {
		Category: CategoryServerFn,
		Message:  "Duplicate server function",
		Detail:   "Two server functions were registered under the same name.",
		DocURL:   docBase + "E083",
	},

	// ============================================
	// Configuration Errors (E120-E139)
	// ============================================

	"E120": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "The suspense.yaml or suspense.json configuration file is malformed.",
		DocURL:   docBase + "E120",
	},
	"E121": {
		Category: CategoryConfig,
		Message:  "Missing required configuration",
		Detail:   "A required configuration value is not set.",
		DocURL:   docBase + "E121",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Invalid port number",
		Detail:   "The configured port number is invalid.",
		DocURL:   docBase + "E122",
	},
	"E123": {
		Category: CategoryConfig,
		Message:  "Invalid render mode",
		Detail:   "The render mode must be one of client, ssr, ooo or inorder.",
		DocURL:   docBase + "E123",
	},
	"E124": {
		Category: CategoryConfig,
		Message:  "Invalid export target",
		Detail:   "The export target must be a local directory or an s3:// URL.",
		DocURL:   docBase + "E124",
	},

	// ============================================
	// CLI Errors (E140-E159)
	// ============================================

	"E140": {
		Category: CategoryCLI,
		Message:  "Configuration not found",
		Detail:   "No suspense.yaml or suspense.json was found in the project directory.",
		DocURL:   docBase + "E140",
	},
	"E141": {
		Category: CategoryCLI,
		Message:  "Export failed",
		Detail:   "Prerendering or uploading a page failed.",
		DocURL:   docBase + "E141",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
