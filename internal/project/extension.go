package project

// Kind tags the Android extension a project carries.
type Kind string

const (
	KindNone        Kind = "none"
	KindLibrary     Kind = "library"
	KindApplication Kind = "application"
)

// Extension is the typed Android configuration of a project. The concrete
// type is chosen from the applied plugin, never looked up by name.
type Extension interface {
	Kind() Kind
	common() *Common
}

// Common holds the settings shared by every Android extension.
type Common struct {
	// Namespace is nil when the project never declared one.
	Namespace  *string `json:"namespace,omitempty"`
	CompileSdk int     `json:"compile_sdk,omitempty"`
}

func (c *Common) common() *Common { return c }

// LibraryConfig is the extension of com.android.library projects.
type LibraryConfig struct {
	Common
	BuildToolsVersion string `json:"build_tools,omitempty"`
}

// Kind implements Extension.
func (*LibraryConfig) Kind() Kind { return KindLibrary }

// ApplicationConfig is the extension of com.android.application projects.
type ApplicationConfig struct {
	Common
	ApplicationID string `json:"application_id,omitempty"`
}

// Kind implements Extension.
func (*ApplicationConfig) Kind() Kind { return KindApplication }

func newLibraryConfig(block AndroidBlock) *LibraryConfig {
	return &LibraryConfig{
		Common:            block.common(),
		BuildToolsVersion: block.BuildTools,
	}
}

func newApplicationConfig(block AndroidBlock) *ApplicationConfig {
	return &ApplicationConfig{
		Common:        block.common(),
		ApplicationID: block.ApplicationID,
	}
}

func (b AndroidBlock) common() Common {
	c := Common{CompileSdk: b.CompileSdk}
	if b.Namespace != nil {
		value := *b.Namespace
		c.Namespace = &value
	}
	return c
}
