package e2e_config

import (
	"fmt"
	"io/ioutil"
	"os"
	"path"
	"sync"

	"gopkg.in/yaml.v2"

	"github.com/ilyakaznacheev/cleanenv"
)

const ConfigDir = "/configurations"

// NodeConfig describes a cluster node the framework can reach over ssh.
type NodeConfig struct {
	Hostname string `yaml:"hostname"`
	Username string `yaml:"username" env-default:"root"`
	Password string `yaml:"password"`
	// KeyFile is used in preference to Password when set
	KeyFile string `yaml:"keyFile"`
	Port    int    `yaml:"port" env-default:"22"`
	// Master marks the node from which kubectl is run
	Master bool `yaml:"master"`
}

// E2EConfig is a application configuration structure
type E2EConfig struct {
	ConfigName string `yaml:"configName" env-default:"default"`
	Platform   struct {
		// Name indicates where the e2e is currently being run from
		Name string `yaml:"name" env-default:"k8s"`
		// Namespace in which cortx is deployed
		Namespace       string `yaml:"namespace" env:"e2e_cortx_namespace" env-default:"cortx"`
		DataPodPrefix   string `yaml:"dataPodPrefix" env-default:"cortx-data"`
		ServerPodPrefix string `yaml:"serverPodPrefix" env-default:"cortx-server"`
		HaxContainer    string `yaml:"haxContainer" env-default:"cortx-hax"`
		// Do not use e2e-agent, ssh is used for node operations instead
		DisableE2EAgent bool `yaml:"disableE2EAgent" env-default:"false"`
	} `yaml:"platform"`

	// Generic configuration files used for CI and automation should not define E2eRootDir
	E2eRootDir string `yaml:"e2eRootDir" env:"e2e_root_dir"`
	// Directory holding the per user json records of the data manager
	MetadataDir string `yaml:"metadataDir" env:"e2e_metadata_dir" env-default:"/tmp/cortx-e2e/metadata"`
	// CommandTimeout bounds every remote command, units are seconds
	CommandTimeout int `yaml:"commandTimeout" env-default:"600"`
	// Solution file used to deploy the cluster under test
	SolutionFile string `yaml:"solutionFile" env:"e2e_solution_file"`

	Nodes []NodeConfig `yaml:"nodes"`

	S3 struct {
		Endpoint  string `yaml:"endpoint" env:"e2e_s3_endpoint" env-default:"http://s3.seagate.com"`
		Region    string `yaml:"region" env-default:"us-east-1"`
		AccessKey string `yaml:"accessKey" env:"e2e_s3_access_key"`
		SecretKey string `yaml:"secretKey" env:"e2e_s3_secret_key"`
		PathStyle bool   `yaml:"pathStyle" env-default:"true"`
	} `yaml:"s3"`

	CSM struct {
		Endpoint  string `yaml:"endpoint" env:"e2e_csm_endpoint"`
		Username  string `yaml:"username" env:"ADMIN_USR" env-default:"cortxadmin"`
		Password  string `yaml:"password" env:"ADMIN_PWD"`
		VerifyTLS bool   `yaml:"verifyTLS" env-default:"false"`
	} `yaml:"csm"`

	// This is an advisory setting for individual tests
	// If set to true tests with multiple It clauses defer asserts till after
	// resources have been cleaned up.
	DeferredAssert bool `yaml:"deferredAssert" env-default:"false" env:"e2e_defer_asserts"`
	// Run configuration
	ReportsDir string `yaml:"reportsDir" env:"e2e_reports_dir"`

	SetupDB struct {
		URI        string `yaml:"uri" env:"e2e_setupdb_uri"`
		Database   string `yaml:"database" env-default:"cft_test_results"`
		Collection string `yaml:"collection" env-default:"r2_systems"`
	} `yaml:"setupDB"`

	// Helm release used by the install and uninstall suites
	Helm struct {
		Release string            `yaml:"release" env-default:"cortx"`
		Chart   string            `yaml:"chart" env:"e2e_cortx_chart"`
		Values  map[string]string `yaml:"values"`
		// InstallTimeoutSecs bounds the wait for the installed cluster to become healthy
		InstallTimeoutSecs int `yaml:"installTimeoutSecs" env-default:"1800"`
	} `yaml:"helm"`

	// Individual Test parameters
	Durability struct {
		DiskFailPolicy string `yaml:"diskFailPolicy" env-default:"random"`
		DisksToFail    int    `yaml:"disksToFail" env-default:"1"`
		// RepairDelaySecs fixed wait after starting repair or rebalance
		RepairDelaySecs int `yaml:"repairDelaySecs" env-default:"60"`
		// ByteCountPollSecs interval at which the byte counts are sampled
		ByteCountPollSecs int `yaml:"byteCountPollSecs" env-default:"30"`
		ByteCountPolls    int `yaml:"byteCountPolls" env-default:"40"`
	} `yaml:"durability"`
	HA struct {
		PodRestartTimeoutSecs int `yaml:"podRestartTimeoutSecs" env-default:"600"`
		PodPollSecs           int `yaml:"podPollSecs" env-default:"10"`
		BackgroundWorkers     int `yaml:"backgroundWorkers" env-default:"4"`
		ObjectSizeBytes       int `yaml:"objectSizeBytes" env-default:"1048576"`
		// IODuration of the background io before the fault is injected
		IODuration string `yaml:"ioDuration" env-default:"60s"`
	} `yaml:"ha"`
	DataIntegrity struct {
		Objects         int `yaml:"objects" env-default:"20"`
		Workers         int `yaml:"workers" env-default:"5"`
		ObjectSizeBytes int `yaml:"objectSizeBytes" env-default:"1048576"`
	} `yaml:"dataIntegrity"`
	CsmIam struct {
		Accounts      int `yaml:"accounts" env-default:"3"`
		FloodRequests int `yaml:"floodRequests" env-default:"100"`
		FloodWorkers  int `yaml:"floodWorkers" env-default:"10"`
	} `yaml:"csmIam"`
}

// MasterNode returns the node flagged as master, or the first node.
func (cfg E2EConfig) MasterNode() (NodeConfig, error) {
	for _, node := range cfg.Nodes {
		if node.Master {
			return node, nil
		}
	}
	if len(cfg.Nodes) != 0 {
		return cfg.Nodes[0], nil
	}
	return NodeConfig{}, fmt.Errorf("no nodes configured")
}

var once sync.Once
var e2eConfig E2EConfig

// LoadConfig reads the configuration file at configFile, applying environment overrides
// and defaults.
func LoadConfig(configFile string) (E2EConfig, error) {
	var cfg E2EConfig
	if err := cleanenv.ReadConfig(configFile, &cfg); err != nil {
		return cfg, err
	}
	if cfg.CommandTimeout <= 0 {
		return cfg, fmt.Errorf("invalid commandTimeout %d", cfg.CommandTimeout)
	}
	return cfg, nil
}

// ResolveConfigFile returns the path of the configuration file named by value.
// Absolute paths are used as is, other names are looked up in the configuration directory.
func ResolveConfigFile(e2eRootDir string, value string) string {
	if path.IsAbs(value) {
		return path.Clean(value)
	}
	return path.Clean(e2eRootDir + ConfigDir + "/" + value)
}

// This function is called early from junit and various bits have not been initialised yet
// so we cannot use logf or Expect instead we use fmt.Print... and panic.
func GetConfig() E2EConfig {
	e2eRootDir, okE2eRootDir := os.LookupEnv("e2e_root_dir")
	once.Do(func() {
		value, ok := os.LookupEnv("e2e_config_file")
		if !ok {
			panic("configuration file not specified, use env var e2e_config_file")
		}
		configFile := ResolveConfigFile(e2eRootDir, value)
		fmt.Printf("Using configuration file %s\n", configFile)
		cfg, err := LoadConfig(configFile)
		if err != nil {
			panic(fmt.Sprintf("%v", err))
		}
		e2eConfig = cfg

		// The environment variable overrides the configuration setting
		if okE2eRootDir {
			if e2eRootDir != e2eConfig.E2eRootDir && e2eConfig.E2eRootDir != "" {
				fmt.Printf("overriding configuration e2e root dir from %s to %s\n", e2eConfig.E2eRootDir, e2eRootDir)
			}
			e2eConfig.E2eRootDir = e2eRootDir
		}

		if e2eConfig.E2eRootDir == "" {
			return
		}
		artifacts := path.Clean(e2eConfig.E2eRootDir + "/artifacts")
		if _, err := os.Stat(artifacts); err != nil {
			return
		}
		cfgBytes, _ := yaml.Marshal(e2eConfig)
		cfgUsedFile := path.Clean(artifacts + "/used-" + e2eConfig.ConfigName + "-" + e2eConfig.Platform.Name + ".yaml")
		err = ioutil.WriteFile(cfgUsedFile, cfgBytes, 0644)
		if err == nil {
			fmt.Printf("Resolved config written to %s\n", cfgUsedFile)
		}
	})

	return e2eConfig
}
