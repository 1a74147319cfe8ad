// client_setup points an s3 client host at a deployed cluster: it resolves the address
// of the cortx io service and maps the s3 host names to it in the hosts file.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"strings"

	"cortx-e2e/common/cluster"
	"cortx-e2e/common/cterror"
	"cortx-e2e/common/e2e_config"
	"cortx-e2e/common/kubectl"
	"cortx-e2e/tools/toolcfg"

	"github.com/google/renameio"
	log "github.com/sirupsen/logrus"
	coreV1 "k8s.io/api/core/v1"
)

var s3Hosts = []string{"s3.seagate.com", "iam.seagate.com"}

type Options struct {
	MasterNode string `long:"master_node" required:"true"`
	Username   string `long:"username" default:"root"`
	Password   string `long:"password" required:"true"`
	// IP overrides the resolved address
	IP        string `long:"ip" description:"address the s3 host names resolve to"`
	HostsFile string `long:"hosts_file" default:"/etc/hosts"`
	Namespace string `long:"namespace" default:"cortx"`
	Service   string `long:"service" default:"cortx-io-svc-0"`
	PortName  string `long:"port_name" default:"cortx-rgw-http"`
}

// Endpoint is where the s3 client connects.
type Endpoint struct {
	IP   string
	Port int32
}

func (e Endpoint) URL() string {
	if e.Port == 0 || e.Port == 80 {
		return "http://" + s3Hosts[0]
	}
	return fmt.Sprintf("http://%s:%d", s3Hosts[0], e.Port)
}

// ResolveEndpoint picks the address of svc for the exposure type: the first node port on
// masterIP for NodePort, the load balancer ingress or external ip otherwise.
func ResolveEndpoint(svc coreV1.Service, exposure string, masterIP string, portName string) (Endpoint, error) {
	var port *coreV1.ServicePort
	for ix := range svc.Spec.Ports {
		if svc.Spec.Ports[ix].Name == portName {
			port = &svc.Spec.Ports[ix]
			break
		}
	}
	if port == nil && len(svc.Spec.Ports) != 0 {
		port = &svc.Spec.Ports[0]
	}
	if port == nil {
		return Endpoint{}, cterror.NewException(cterror.ParseError, "service %s has no ports", svc.Name)
	}

	if strings.EqualFold(exposure, string(coreV1.ServiceTypeNodePort)) {
		if port.NodePort == 0 {
			return Endpoint{}, cterror.NewException(cterror.ParseError, "service %s has no node port", svc.Name)
		}
		return Endpoint{IP: masterIP, Port: port.NodePort}, nil
	}
	for _, ing := range svc.Status.LoadBalancer.Ingress {
		if ing.IP != "" {
			return Endpoint{IP: ing.IP, Port: port.Port}, nil
		}
	}
	if len(svc.Spec.ExternalIPs) != 0 {
		return Endpoint{IP: svc.Spec.ExternalIPs[0], Port: port.Port}, nil
	}
	return Endpoint{}, cterror.NewException(cterror.ParseError, "service %s has no external address", svc.Name)
}

func mapsS3Host(line string) bool {
	fields := strings.Fields(line)
	if len(fields) < 2 || strings.HasPrefix(fields[0], "#") {
		return false
	}
	for _, field := range fields[1:] {
		for _, h := range s3Hosts {
			if field == h {
				return true
			}
		}
	}
	return false
}

// UpdateHosts drops the lines mapping the s3 host names and appends one mapping them to ip.
func UpdateHosts(content string, ip string) string {
	var lines []string
	for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
		if line != "" && !mapsS3Host(line) {
			lines = append(lines, line)
		}
	}
	lines = append(lines, ip+" "+strings.Join(s3Hosts, " "))
	return strings.Join(lines, "\n") + "\n"
}

func getService(ctx context.Context, k *kubectl.Kubectl, name string) (coreV1.Service, error) {
	var svc coreV1.Service
	out, err := k.Run(ctx, "get", "svc", name, "-o", "json")
	if err != nil {
		return svc, err
	}
	if err := json.Unmarshal(out, &svc); err != nil {
		return svc, cterror.WrapException(err, cterror.ParseError, "service %s", name)
	}
	return svc, nil
}

// Setup resolves the endpoint through node and rewrites the hosts file.
func Setup(ctx context.Context, node cluster.Node, opts Options, exposure string) (Endpoint, error) {
	ep := Endpoint{IP: opts.IP}
	if ep.IP == "" || exposure != "" {
		svc, err := getService(ctx, kubectl.New(node, opts.Namespace, 120), opts.Service)
		if err != nil {
			return ep, err
		}
		resolved, err := ResolveEndpoint(svc, exposure, opts.MasterNode, opts.PortName)
		if err != nil {
			return ep, err
		}
		if ep.IP == "" {
			ep.IP = resolved.IP
		}
		ep.Port = resolved.Port
	}

	content, err := ioutil.ReadFile(opts.HostsFile)
	if err != nil && !os.IsNotExist(err) {
		return ep, err
	}
	if err := renameio.WriteFile(opts.HostsFile, []byte(UpdateHosts(string(content), ep.IP)), 0644); err != nil {
		return ep, err
	}
	return ep, nil
}

func run(ctx context.Context, args []string, exposure string) error {
	var opts Options
	if _, err := toolcfg.ParseArgs(&opts, args); err != nil {
		return err
	}
	node := cluster.NewLogicalNode(e2e_config.NodeConfig{
		Hostname: opts.MasterNode,
		Username: opts.Username,
		Password: opts.Password,
	})
	defer node.Close()

	ep, err := Setup(ctx, node, opts, exposure)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"ip": ep.IP, "endpoint": ep.URL(), "hosts": opts.HostsFile}).Info("Client configured")
	return nil
}

func main() {
	toolcfg.InitLogger(toolcfg.Logger{Level: os.Getenv("LOG_LEVEL")}, "client_setup")
	if err := run(context.Background(), os.Args[1:], os.Getenv("EXTERNAL_EXPOSURE_SERVICE")); err != nil {
		log.Error(err)
		os.Exit(toolcfg.ExitCode(err))
	}
}
