package errors

// ErrorCode is a stable identifier for a class of failure.
type ErrorCode string

// Source errors (SRC100-199)
const (
	// ErrCodeDocsNotFound indicates the documentation file could not be read
	ErrCodeDocsNotFound ErrorCode = "SRC101"
	// ErrCodeSchemasNotFound indicates the schema-artifact tree is missing
	ErrCodeSchemasNotFound ErrorCode = "SRC102"
	// ErrCodeRegistryUnreadable indicates the registry file could not be read or decoded
	ErrCodeRegistryUnreadable ErrorCode = "SRC103"
	// ErrCodeRegistryUnwritable indicates the registry file could not be written
	ErrCodeRegistryUnwritable ErrorCode = "SRC104"
)

// Correlation errors (COR200-299)
const (
	// ErrCodeDuplicateArtifact indicates two artifacts claim one endpoint
	ErrCodeDuplicateArtifact ErrorCode = "COR201"
	// ErrCodeDivergentMethod indicates a documented endpoint declared twice with different methods
	ErrCodeDivergentMethod ErrorCode = "COR202"
	// ErrCodeDuplicateHeading indicates a documented endpoint declared twice with the same method
	ErrCodeDuplicateHeading ErrorCode = "COR203"
	// ErrCodeAmbiguousAlias indicates an alias spelling produced by two documented endpoints
	ErrCodeAmbiguousAlias ErrorCode = "COR204"
	// ErrCodeUnmatchedArtifact indicates an artifact with no documented endpoint
	ErrCodeUnmatchedArtifact ErrorCode = "COR205"
)

// Generation errors (GEN300-399)
const (
	// ErrCodeGenerationFailed indicates the code generator failed for an artifact
	ErrCodeGenerationFailed ErrorCode = "GEN301"
	// ErrCodeInvalidLocator indicates an artifact path that cannot become a Go package path
	ErrCodeInvalidLocator ErrorCode = "GEN302"
	// ErrCodePackageMarker indicates a package marker file could not be written
	ErrCodePackageMarker ErrorCode = "GEN303"
)

// Runtime errors (RUN400-499)
const (
	// ErrCodeUnresolvedEndpoint indicates an endpoint missing from the registry
	ErrCodeUnresolvedEndpoint ErrorCode = "RUN401"
	// ErrCodeModelNotFound indicates a registry model with no descriptor in the catalog
	ErrCodeModelNotFound ErrorCode = "RUN402"
	// ErrCodeUnsupportedVersion indicates an API version other than the supported one
	ErrCodeUnsupportedVersion ErrorCode = "RUN403"
	// ErrCodeUnsubstitutedParameter indicates placeholders left in a path at dispatch
	ErrCodeUnsubstitutedParameter ErrorCode = "RUN404"
	// ErrCodeInvalidPayload indicates request data rejected by the validation model
	ErrCodeInvalidPayload ErrorCode = "RUN405"
)

// Configuration errors (CFG500-599)
const (
	// ErrCodeInvalidConfig indicates an invalid configuration value
	ErrCodeInvalidConfig ErrorCode = "CFG501"
	// ErrCodeBuildLocked indicates another build holds the registry lock
	ErrCodeBuildLocked ErrorCode = "CFG502"
)

// External tool errors (EXT600-699)
const (
	// ErrCodeToolNotFound indicates the external executable is not installed
	ErrCodeToolNotFound ErrorCode = "EXT601"
	// ErrCodeToolFailed indicates the external tool exited non-zero
	ErrCodeToolFailed ErrorCode = "EXT602"
	// ErrCodeToolTimeout indicates the external tool exceeded its deadline
	ErrCodeToolTimeout ErrorCode = "EXT603"
)
