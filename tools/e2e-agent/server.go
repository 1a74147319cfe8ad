package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type NodeList struct {
	Nodes []string `json:"nodes"`
}

type CmdList struct {
	Cmd string `json:"cmd"`
}

const (
	InternalServerErrorCode      = 500
	UnprocessableEntityErrorCode = 422
)

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	agent := NewAgent(os.Getenv("E2E_HOST_ADDR"), []string{os.Getenv("REST_PORT")})
	if err := agent.Setup(context.Background()); err != nil {
		log.Fatal(err)
	}
	addr := os.Getenv("MY_POD_IP") + ":" + os.Getenv("REST_PORT")
	log.WithField("addr", addr).Info("e2e-agent listening")
	log.Fatal(http.ListenAndServe(addr, NewRouter(agent)))
}

func NewRouter(agent *Agent) *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/", homePage)
	router.HandleFunc("/ungracefulReboot", agent.ungracefulReboot).Methods("POST")
	router.HandleFunc("/gracefulReboot", gracefulReboot).Methods("POST")
	router.HandleFunc("/dropConnectionsFromNodes", agent.dropConnectionsFromNodes).Methods("POST")
	router.HandleFunc("/acceptConnectionsFromNodes", agent.acceptConnectionsFromNodes).Methods("POST")
	router.HandleFunc("/exec", agent.execCmd).Methods("POST")
	return router
}

func homePage(w http.ResponseWriter, r *http.Request) {
	fmt.Fprint(w, "Welcome home!\n")
}

func (a *Agent) ungracefulReboot(w http.ResponseWriter, r *http.Request) {
	go func() {
		if err := a.UngracefulReboot(); err != nil {
			log.Error(err)
		}
	}()
}

func gracefulReboot(w http.ResponseWriter, r *http.Request) {
	fmt.Fprint(w, "Graceful reboots are not yet supported")
}

func decodeNodes(w http.ResponseWriter, r *http.Request) (NodeList, bool) {
	var list NodeList
	if err := json.NewDecoder(r.Body).Decode(&list); err != nil {
		w.WriteHeader(UnprocessableEntityErrorCode)
		fmt.Fprint(w, err.Error())
		return list, false
	}
	return list, true
}

func (a *Agent) dropConnectionsFromNodes(w http.ResponseWriter, r *http.Request) {
	list, ok := decodeNodes(w, r)
	if !ok {
		return
	}
	if err := a.DropConnectionsFromNodes(r.Context(), list.Nodes); err != nil {
		w.WriteHeader(InternalServerErrorCode)
		fmt.Fprint(w, err.Error())
		return
	}
	fmt.Fprint(w, "Successfully stopped network services\n")
}

func (a *Agent) acceptConnectionsFromNodes(w http.ResponseWriter, r *http.Request) {
	list, ok := decodeNodes(w, r)
	if !ok {
		return
	}
	if err := a.AcceptConnectionsFromNodes(r.Context(), list.Nodes); err != nil {
		w.WriteHeader(InternalServerErrorCode)
		fmt.Fprint(w, err.Error())
		return
	}
	fmt.Fprint(w, "Successfully started network services\n")
}

func (a *Agent) execCmd(w http.ResponseWriter, r *http.Request) {
	var cmdline CmdList
	if err := json.NewDecoder(r.Body).Decode(&cmdline); err != nil {
		w.WriteHeader(UnprocessableEntityErrorCode)
		fmt.Fprint(w, err.Error())
		return
	}
	if len(cmdline.Cmd) == 0 {
		w.WriteHeader(UnprocessableEntityErrorCode)
		fmt.Fprint(w, "no command passed")
		return
	}
	output, err := a.Exec(r.Context(), cmdline.Cmd)
	if err != nil {
		log.WithFields(log.Fields{"cmd": cmdline.Cmd, "error": err}).Warn("command failed")
		w.WriteHeader(InternalServerErrorCode)
		fmt.Fprint(w, string(output)+err.Error())
		return
	}
	_, _ = w.Write(output)
}
