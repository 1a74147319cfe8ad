// update_sol_conf rewrites a solution.yaml in place: namespace, images, storage set
// nodes and the devices of its cvgs.
package main

import (
	"fmt"
	"os"
	"strings"

	"cortx-e2e/common/cterror"
	"cortx-e2e/common/solution"
	"cortx-e2e/tools/toolcfg"

	log "github.com/sirupsen/logrus"
)

type Options struct {
	Solution     string   `long:"solution" required:"true" description:"solution.yaml to update"`
	StorageSet   string   `long:"storage_set" description:"storage set to update, defaults to the first one"`
	Nodes        []string `long:"nodes" description:"storage set node, repeatable"`
	DataDisks    []string `long:"data_disks" description:"data device, repeatable"`
	MetadataDisk []string `long:"metadata_disk" description:"metadata device, one per cvg"`
	CvgCount     int      `long:"cvg_count" default:"1" description:"data devices are spread over this many cvgs"`
	Namespace    string   `long:"namespace" description:"namespace cortx is deployed in"`
	Images       []string `long:"image" description:"image override, name=reference"`
}

// cvgName numbers cvgs from 1.
func cvgName(ix int) string {
	return fmt.Sprintf("cvg-%02d", ix+1)
}

// splitDisks spreads disks round robin over count cvgs.
func splitDisks(disks []string, count int) ([][]string, error) {
	if count < 1 || len(disks) < count {
		return nil, cterror.NewException(cterror.InvalidArgs, "%d data disks for %d cvgs", len(disks), count)
	}
	out := make([][]string, count)
	for ix, d := range disks {
		out[ix%count] = append(out[ix%count], d)
	}
	return out, nil
}

// Update applies opts to sol, targetNode is appended to the storage set nodes when set.
func Update(sol *solution.File, opts Options, targetNode string) error {
	set := opts.StorageSet
	if set == "" {
		set = sol.FirstStorageSet()
	}
	if opts.Namespace != "" {
		sol.SetNamespace(opts.Namespace)
	}
	for _, img := range opts.Images {
		parts := strings.SplitN(img, "=", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return cterror.NewException(cterror.InvalidArgs, "image %q is not name=reference", img)
		}
		sol.SetImage(parts[0], parts[1])
	}
	if len(opts.Nodes) != 0 {
		if err := sol.SetNodes(set, opts.Nodes); err != nil {
			return err
		}
	}
	if targetNode != "" {
		if err := sol.AddNode(set, targetNode); err != nil {
			return err
		}
	}
	if len(opts.DataDisks) != 0 {
		groups, err := splitDisks(opts.DataDisks, opts.CvgCount)
		if err != nil {
			return err
		}
		if len(opts.MetadataDisk) != 0 && len(opts.MetadataDisk) != len(groups) {
			return cterror.NewException(cterror.InvalidArgs, "%d metadata disks for %d cvgs", len(opts.MetadataDisk), len(groups))
		}
		for ix, data := range groups {
			var md []string
			if len(opts.MetadataDisk) != 0 {
				md = []string{opts.MetadataDisk[ix]}
			}
			if err := sol.SetDevices(set, cvgName(ix), md, data); err != nil {
				return err
			}
		}
	}
	return nil
}

func run(args []string, targetNode string) error {
	var opts Options
	if _, err := toolcfg.ParseArgs(&opts, args); err != nil {
		return err
	}
	sol, err := solution.Load(opts.Solution)
	if err != nil {
		return err
	}
	if err := Update(sol, opts, targetNode); err != nil {
		return err
	}
	if err := sol.Save(opts.Solution); err != nil {
		return err
	}
	log.WithField("solution", opts.Solution).Info("Solution updated")
	return nil
}

func main() {
	toolcfg.InitLogger(toolcfg.Logger{Level: os.Getenv("LOG_LEVEL")}, "update_sol_conf")
	if err := run(os.Args[1:], os.Getenv("Target_Node")); err != nil {
		log.Error(err)
		os.Exit(toolcfg.ExitCode(err))
	}
}
