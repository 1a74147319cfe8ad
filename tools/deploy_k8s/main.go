// deploy_k8s deploys cortx on a set of nodes over ssh and registers the setup in the
// setup inventory.
package main

import (
	"context"
	"net/url"
	"os"
	"time"

	"cortx-e2e/common/cluster"
	"cortx-e2e/common/e2e_config"
	"cortx-e2e/common/setupdb"
	"cortx-e2e/tools/toolcfg"

	log "github.com/sirupsen/logrus"
)

type Options struct {
	MasterNode string   `long:"master_node" required:"true" description:"node kubectl and the deploy script run on"`
	Username   string   `long:"username" default:"root"`
	Password   string   `long:"password" required:"true"`
	Nodes      []string `long:"nodes" description:"worker node, repeatable"`
	SetupName  string   `long:"setup_name" required:"true"`
	SetupType  string   `long:"setup_type" default:"k8s"`
	Solution   string   `long:"solution" description:"local solution.yaml copied to the master"`
	MongoURI   string   `long:"mongo_uri" description:"setup inventory, not updated when empty"`
	Database   string   `long:"database" default:"cft_test_results"`
	Collection string   `long:"collection" default:"r2_systems"`
	ScriptsDir string   `long:"scripts_dir" default:"/root/deploy-scripts/k8_cortx_cloud"`
	SystemDisk string   `long:"system_disk" default:"/dev/sdb"`
	Namespace  string   `long:"namespace" default:"cortx"`
	EntryFile  string   `long:"entry_file" default:"setup_entry.json"`
	// Timeout bounds every remote command, in seconds
	Timeout int `long:"timeout" default:"3600"`
}

// withCredentials sets user and password on uri unless it carries credentials already.
func withCredentials(uri, user, password string) (string, error) {
	if user == "" {
		return uri, nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return "", err
	}
	if u.User != nil {
		return uri, nil
	}
	u.User = url.UserPassword(user, password)
	return u.String(), nil
}

func nodeConfig(opts Options, host string) e2e_config.NodeConfig {
	return e2e_config.NodeConfig{Hostname: host, Username: opts.Username, Password: opts.Password}
}

func run(ctx context.Context, args []string) error {
	var opts Options
	if _, err := toolcfg.ParseArgs(&opts, args); err != nil {
		return err
	}

	master := cluster.NewLogicalNode(nodeConfig(opts, opts.MasterNode))
	defer master.Close()
	d := &Deployer{
		Opts:           opts,
		Master:         master,
		HealthAttempts: 60,
		HealthSleep:    30 * time.Second,
		Now:            time.Now,
	}
	for _, host := range opts.Nodes {
		worker := cluster.NewLogicalNode(nodeConfig(opts, host))
		defer worker.Close()
		d.Workers = append(d.Workers, worker)
	}

	if opts.MongoURI != "" {
		uri, err := withCredentials(opts.MongoURI, os.Getenv("ADMIN_USR"), os.Getenv("ADMIN_PWD"))
		if err != nil {
			return err
		}
		store, err := setupdb.Connect(ctx, uri, opts.Database, opts.Collection)
		if err != nil {
			return err
		}
		defer store.Close(context.Background())
		d.Store = store
	}

	e, err := d.Deploy(ctx)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"setup": e.SetupName, "entry": opts.EntryFile}).Info("Deployment complete")
	return nil
}

func main() {
	toolcfg.InitLogger(toolcfg.Logger{Level: os.Getenv("LOG_LEVEL")}, "deploy_k8s")
	if err := run(context.Background(), os.Args[1:]); err != nil {
		log.Error(err)
		os.Exit(toolcfg.ExitCode(err))
	}
}
