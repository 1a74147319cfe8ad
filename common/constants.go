package common

const NSE2EAgent = "e2e-agent"
const NSE2EPrefix = "e2e-cortx"
const NSDefault = "default"

// Pod name prefixes of the cortx deployments.
const DataPodPrefix = "cortx-data"
const ServerPodPrefix = "cortx-server"
const ControlPodPrefix = "cortx-control"
const HaPodPrefix = "cortx-ha"

// HaxContainer is the container of a data pod from which hctl commands are issued.
const HaxContainer = "cortx-hax"

const DefaultObjectSizeBytes = 1024 * 1024
const DefaultBucketPrefix = "e2e-bucket"

// ConfigDir  Relative path to the configuration directory WRT e2e root.
const ConfigDir = "/configurations"

// MetadataFileSuffix suffix of the per user metadata files written by the data manager.
const MetadataFileSuffix = "_user_metadata.json"

// S3PrefixScheme is prepended to bucket names to form the s3 prefix of a bucket record.
const S3PrefixScheme = "s3://"

// TestAccountPrefix prefixes the names of the s3 accounts created by the test suites.
const TestAccountPrefix = "e2e-acc-"
