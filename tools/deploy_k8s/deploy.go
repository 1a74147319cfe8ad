package main

import (
	"context"
	"path"
	"time"

	"cortx-e2e/common"
	"cortx-e2e/common/cluster"
	"cortx-e2e/common/cterror"
	"cortx-e2e/common/health"
	"cortx-e2e/common/kubectl"
	"cortx-e2e/common/setupdb"
	"cortx-e2e/common/solution"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	prereqScript = "prereq-deploy-cortx-cloud.sh"
	deployScript = "deploy-cortx-cloud.sh"
)

type uploader interface {
	Upload(ctx context.Context, remotePath string, data []byte, mode uint32) error
}

type inventory interface {
	Upsert(ctx context.Context, e setupdb.SetupEntry) error
}

// Deployer provisions cortx on Master and Workers and records the setup.
type Deployer struct {
	Opts    Options
	Master  cluster.Node
	Workers []cluster.Node
	// Store is optional, the entry file is always written
	Store          inventory
	HealthAttempts int
	HealthSleep    time.Duration
	Now            func() time.Time
}

func (d *Deployer) run(ctx context.Context, node cluster.Node, cmd string) error {
	ctx, cancel := cluster.WithCommandTimeout(ctx, d.Opts.Timeout)
	defer cancel()
	log.WithFields(log.Fields{"host": node.Hostname(), "cmd": cmd}).Info("Running")
	out, err := node.Execute(ctx, cmd)
	if err != nil {
		log.WithField("host", node.Hostname()).Error(string(out))
		return err
	}
	log.WithField("host", node.Hostname()).Debug(string(out))
	return nil
}

func (d *Deployer) workerNames() []string {
	names := make([]string, 0, len(d.Workers))
	for _, w := range d.Workers {
		names = append(names, w.Hostname())
	}
	return names
}

// uploadSolution copies the solution file to the scripts directory of the master,
// with the worker nodes as nodes of the first storage set.
func (d *Deployer) uploadSolution(ctx context.Context) error {
	sol, err := solution.Load(d.Opts.Solution)
	if err != nil {
		return err
	}
	if len(d.Workers) != 0 {
		if err := sol.SetNodes(sol.FirstStorageSet(), d.workerNames()); err != nil {
			return err
		}
	}
	data, err := sol.Marshal()
	if err != nil {
		return err
	}
	up, ok := d.Master.(uploader)
	if !ok {
		return cterror.NewException(cterror.InvalidArgs, "node %s does not accept uploads", d.Master.Hostname())
	}
	return up.Upload(ctx, path.Join(d.Opts.ScriptsDir, "solution.yaml"), data, 0644)
}

// allNodes is the master followed by the workers, without duplicates.
func (d *Deployer) allNodes() []cluster.Node {
	nodes := []cluster.Node{d.Master}
	for _, w := range d.Workers {
		if w.Hostname() != d.Master.Hostname() {
			nodes = append(nodes, w)
		}
	}
	return nodes
}

func (d *Deployer) prereq(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	cmd := "cd " + kubectl.Quote(d.Opts.ScriptsDir) + " && ./" + prereqScript + " -p -d " + kubectl.Quote(d.Opts.SystemDisk)
	for _, node := range d.allNodes() {
		node := node
		g.Go(func() error {
			return d.run(gctx, node, cmd)
		})
	}
	return g.Wait()
}

func (d *Deployer) entry() setupdb.SetupEntry {
	now := d.Now()
	e := setupdb.SetupEntry{
		SetupName: d.Opts.SetupName,
		SetupType: d.Opts.SetupType,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for ix, node := range d.allNodes() {
		e.Nodes = append(e.Nodes, setupdb.NodeEntry{
			Host:     node.Hostname(),
			Hostname: node.Hostname(),
			Username: d.Opts.Username,
			Password: d.Opts.Password,
			Master:   ix == 0,
		})
	}
	return e
}

// Deploy runs the prerequisites on every node, deploys from the master, waits for
// the cluster to become healthy and registers the setup.
func (d *Deployer) Deploy(ctx context.Context) (setupdb.SetupEntry, error) {
	if d.Opts.Solution != "" {
		if err := d.uploadSolution(ctx); err != nil {
			return setupdb.SetupEntry{}, err
		}
	}
	if err := d.prereq(ctx); err != nil {
		return setupdb.SetupEntry{}, err
	}
	if err := d.run(ctx, d.Master, "cd "+kubectl.Quote(d.Opts.ScriptsDir)+" && ./"+deployScript); err != nil {
		return setupdb.SetupEntry{}, err
	}

	checker := &health.Checker{
		Kubectl:       kubectl.New(d.Master, d.Opts.Namespace, d.Opts.Timeout),
		DataPodPrefix: common.DataPodPrefix,
		HaxContainer:  common.HaxContainer,
		PodPrefix:     "cortx",
	}
	if err := checker.WaitHealthy(ctx, d.HealthAttempts, d.HealthSleep); err != nil {
		return setupdb.SetupEntry{}, err
	}
	log.Info("Cluster is healthy")

	e := d.entry()
	if d.Store != nil {
		if err := d.Store.Upsert(ctx, e); err != nil {
			return e, err
		}
		log.WithField("setup", e.SetupName).Info("Setup registered")
	}
	if err := setupdb.WriteEntryFile(d.Opts.EntryFile, e); err != nil {
		return e, err
	}
	return e, nil
}
