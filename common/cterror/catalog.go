package cterror

// Error is an immutable (code, description) pair from the error catalog.
type Error struct {
	Code int
	Desc string
}

func (e Error) String() string {
	return e.Desc
}

// Catalog
// 1xxx  framework
// 2xxx  command execution and cluster introspection
// 3xxx  s3 data path
// 4xxx  csm rest
// 5xxx  kubernetes pod lifecycle
// 6xxx  durability
// 7xxx  data manager
// 8xxx  setup inventory
var (
	UnknownError   = Error{1000, "Unknown error"}
	InvalidConfig  = Error{1001, "Invalid configuration"}
	MissingFile    = Error{1002, "File does not exist"}
	InvalidArgs    = Error{1003, "Invalid arguments"}
	NotImplemented = Error{1004, "Not implemented"}
	FailOnError    = Error{1005, "Failure routing failed"}
	Timeout        = Error{1006, "Operation timed out"}

	CommandFailed     = Error{2000, "Remote command failed"}
	ConnectionFailed  = Error{2001, "Connection to node failed"}
	ParseError        = Error{2002, "Failed to parse command output"}
	PodNotFound       = Error{2003, "Pod not found"}
	DeploymentMissing = Error{2004, "Deployment not found"}

	S3Error            = Error{3000, "S3 request failed"}
	S3BucketError      = Error{3001, "S3 bucket operation failed"}
	DataIntegrityError = Error{3002, "Object checksum mismatch"}

	CSMRestError  = Error{4000, "CSM REST request failed"}
	CSMLoginError = Error{4001, "CSM login failed"}

	PodRestartError = Error{5000, "Pod restart failed"}
	PodStateError   = Error{5001, "Pod not in expected state"}
	ScaleError      = Error{5002, "Deployment scale failed"}

	DiskSelectError  = Error{6000, "Unable to select disks"}
	DiskStateError   = Error{6001, "Disk state change failed"}
	SnsRepairError   = Error{6002, "SNS repair command failed"}
	SnsRebalanceErr  = Error{6003, "SNS rebalance command failed"}
	HealthCheckError = Error{6004, "Cluster health check failed"}

	DataManagerError = Error{7000, "Data manager record error"}
	UserMismatch     = Error{7001, "Data manager user mismatch"}

	SetupDBError  = Error{8000, "Setup inventory request failed"}
	SetupNotFound = Error{8001, "Setup not found in inventory"}
)

var catalog = []Error{
	UnknownError,
	InvalidConfig,
	MissingFile,
	InvalidArgs,
	NotImplemented,
	FailOnError,
	Timeout,
	CommandFailed,
	ConnectionFailed,
	ParseError,
	PodNotFound,
	DeploymentMissing,
	S3Error,
	S3BucketError,
	DataIntegrityError,
	CSMRestError,
	CSMLoginError,
	PodRestartError,
	PodStateError,
	ScaleError,
	DiskSelectError,
	DiskStateError,
	SnsRepairError,
	SnsRebalanceErr,
	HealthCheckError,
	DataManagerError,
	UserMismatch,
	SetupDBError,
	SetupNotFound,
}

// Default holds the catalog, it is validated once at init.
var Default = NewRegistry(catalog...)

func init() {
	if err := Default.Validate(); err != nil {
		panic(err)
	}
}

// GetError looks code up in the default registry.
func GetError(code int) (Error, bool) {
	return Default.GetError(code)
}

// GetErrorByDescription returns the first catalog entry whose description contains substr.
func GetErrorByDescription(substr string) (Error, bool) {
	return Default.GetErrorByDescription(substr)
}

// Validate checks the default registry for duplicate codes and empty descriptions.
func Validate() error {
	return Default.Validate()
}

// ValidateCode checks a single code of the default registry.
func ValidateCode(code int) error {
	return Default.ValidateCode(code)
}
