package connectors

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"
)

const pageSize = 50

type JiraTask struct {
	Key    string  `json:"key"`
	Id     *string `json:"id"`
	Fields Fields  `json:"fields"`
}

type Fields struct {
	Assignee  *Assignee  `json:"assignee"`
	Status    Status     `json:"status"`
	Name      *string    `json:"summary"`
	IssueType *IssueType `json:"issuetype"`
}

type Assignee struct {
	Email string `json:"emailAddress"`
	Name  string `json:"displayName,omitempty"`
}

type Status struct {
	Description string `json:"description,omitempty"`
	Name        string `json:"name"`
}

type IssueType struct {
	Name string `json:"name"`
}

// TestRun is the result of one test within a test execution.
type TestRun struct {
	Key    string `json:"key"`
	Status string `json:"status"`
}

type searchResult struct {
	StartAt    int        `json:"startAt"`
	MaxResults int        `json:"maxResults"`
	Total      int        `json:"total"`
	Issues     []JiraTask `json:"issues"`
}

func (t *JiraTask) Summary() string {
	if t.Fields.Name == nil {
		return ""
	}
	return *t.Fields.Name
}

func (t *JiraTask) AssigneeName() string {
	if t.Fields.Assignee == nil {
		return ""
	}
	return t.Fields.Assignee.Name
}

// Client reads issues and test executions, issues are cached by key.
type Client struct {
	BaseURL string
	User    string
	Token   string
	HTTP    *http.Client
	issues  *cache.Cache
}

func NewClient(baseURL, user, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		User:    user,
		Token:   token,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
		issues:  cache.New(30*time.Minute, time.Hour),
	}
}

func (c *Client) get(path string, query url.Values, out interface{}) error {
	u := c.BaseURL + path
	if len(query) != 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Add("Accept", "application/json")
	req.Header.Add("Content-Type", "application/json")
	req.SetBasicAuth(c.User, c.Token)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		log.Error(err.Error())
		return err
	}
	defer resp.Body.Close()
	bodyBytes, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %d %s", path, resp.StatusCode, string(bodyBytes))
	}
	return json.Unmarshal(bodyBytes, out)
}

// GetIssue returns the issue key, from the cache when it was fetched before.
func (c *Client) GetIssue(key string) (*JiraTask, error) {
	if cached, ok := c.issues.Get(key); ok {
		return cached.(*JiraTask), nil
	}
	var jt JiraTask
	if err := c.get("/rest/api/2/issue/"+url.PathEscape(key), nil, &jt); err != nil {
		return nil, err
	}
	c.issues.SetDefault(key, &jt)
	return &jt, nil
}

// SearchExecutions returns the test executions linked to testPlan, following pagination.
func (c *Client) SearchExecutions(testPlan string) ([]JiraTask, error) {
	jql := fmt.Sprintf(`issuetype = "Test Execution" AND issue in linkedIssues("%s")`, testPlan)
	var execs []JiraTask
	for startAt := 0; ; {
		q := url.Values{}
		q.Set("jql", jql)
		q.Set("startAt", fmt.Sprint(startAt))
		q.Set("maxResults", fmt.Sprint(pageSize))
		q.Set("fields", "summary,status,assignee,issuetype")
		var page searchResult
		if err := c.get("/rest/api/2/search", q, &page); err != nil {
			return nil, err
		}
		for ix := range page.Issues {
			c.issues.SetDefault(page.Issues[ix].Key, &page.Issues[ix])
		}
		execs = append(execs, page.Issues...)
		startAt += len(page.Issues)
		if len(page.Issues) == 0 || startAt >= page.Total {
			break
		}
	}
	log.WithFields(log.Fields{"plan": testPlan, "executions": len(execs)}).Info("Found test executions")
	return execs, nil
}

// GetExecutionTests lists the test runs of the test execution execKey.
func (c *Client) GetExecutionTests(execKey string) ([]TestRun, error) {
	var runs []TestRun
	err := c.get("/rest/raven/1.0/api/testexec/"+url.PathEscape(execKey)+"/test", nil, &runs)
	return runs, err
}
