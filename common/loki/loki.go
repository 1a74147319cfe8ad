package loki

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"cortx-e2e/common/e2e_config"

	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

const defaultPushURL = "https://logs-prod-us-central1.grafana.net/loki/api/v1/push"

var g_apiUser string
var g_apiPw string
var g_loki_run_id string
var g_pushURL string
var g_enabled = false
var g_once sync.Once

type stream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

type pushRequest struct {
	Streams []stream `json:"streams"`
}

func markerRequest(runID, version, text string, at time.Time) pushRequest {
	return pushRequest{Streams: []stream{{
		Stream: map[string]string{"run": runID, "version": version, "app": "marker"},
		Values: [][2]string{{strconv.FormatInt(at.UnixNano(), 10), text}},
	}}}
}

func configure() {
	g_apiUser = os.Getenv("grafana_api_user")
	g_apiPw = os.Getenv("grafana_api_pw")
	g_loki_run_id = os.Getenv("loki_run_id")
	g_pushURL = os.Getenv("loki_push_url")
	if g_pushURL == "" {
		g_pushURL = defaultPushURL
	}

	if g_apiUser != "" && g_apiPw != "" && g_loki_run_id != "" {
		g_enabled = true
	} else if g_apiUser != "" || g_apiPw != "" || g_loki_run_id != "" { // all should be defined or none
		errorStr := "Invalid combination of environment variables"
		if g_apiUser == "" {
			errorStr += ", user is not defined"
		}
		if g_apiPw == "" {
			errorStr += ", password is not defined"
		}
		if g_loki_run_id == "" {
			errorStr += ", loki_run_id is not defined"
		}
		logf.Log.Info("Invalid Loki config", "reason", errorStr)
	}
}

// SendLokiMarker pushes text to loki, tagged with the run id and configuration name.
// Nothing is sent unless grafana_api_user, grafana_api_pw and loki_run_id are all set.
func SendLokiMarker(text string) {
	g_once.Do(configure)
	if !g_enabled {
		return
	}
	send(g_pushURL, g_apiUser, g_apiPw,
		markerRequest(g_loki_run_id, e2e_config.GetConfig().ConfigName, text, time.Now()))
}

func send(url, user, pw string, body pushRequest) {
	payload, err := json.Marshal(body)
	if err != nil {
		logf.Log.Info("Failed to encode Loki request", "error", err)
		return
	}
	req, err := http.NewRequest("POST", url, bytes.NewReader(payload))
	if err != nil {
		logf.Log.Info("Failed to create Loki marker request", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(user, pw)

	client := &http.Client{Timeout: time.Second * 10}
	resp, err := client.Do(req)
	if err != nil {
		logf.Log.Info("Failed to send Loki marker", "error", err)
		return
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logf.Log.Info("Unexpected response from Grafana / Loki", "status code", resp.StatusCode)
	}
	resp.Body.Close()
}
