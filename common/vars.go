package common

import "cortx-e2e/common/e2e_config"

// NSCortx return the name of the namespace in which cortx is installed
func NSCortx() string {
	return e2e_config.GetConfig().Platform.Namespace
}

// MetadataDir return the directory in which the data manager keeps per user records
func MetadataDir() string {
	return e2e_config.GetConfig().MetadataDir
}
