package application

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/davarch/remote-trigger/internal/domain"
)

const (
	buildTokenRootPath    = "/buildByToken"
	parameterizedBuildURL = "/buildWithParameters"
	normalBuildURL        = "/build"
)

// EncodeValue form-encodes s as UTF-8 with spaces as %20 rather than '+'.
func EncodeValue(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// EncodeParameters encodes each key=value line on both sides of the first
// '=' and joins the lines with '&'.
func EncodeParameters(params []string) string {
	encoded := make([]string, 0, len(params))
	for _, p := range params {
		key, value, found := strings.Cut(p, "=")
		if !found {
			encoded = append(encoded, EncodeValue(key))
			continue
		}
		encoded = append(encoded, EncodeValue(key)+"="+EncodeValue(value))
	}
	return strings.Join(encoded, "&")
}

func buildTypePath(params []string) string {
	if len(params) > 0 {
		return parameterizedBuildURL
	}
	return normalBuildURL
}

// TriggerURL assembles the fully-qualified URL that queues a remote build.
// Query fragments are ordered job, token, parameters, delay=0.
func TriggerURL(server domain.RemoteServer, job, token string, params []string) string {
	base := trimSlash(server.Address)

	var (
		path  string
		query []string
	)
	if server.TokenRootSupport {
		path = base + buildTokenRootPath + buildTypePath(params)
		query = append(query, "job="+EncodeValue(job))
	} else {
		path = base + "/job/" + EncodeValue(job) + buildTypePath(params)
	}

	if token != "" {
		query = append(query, "token="+EncodeValue(token))
	}
	if qs := EncodeParameters(params); qs != "" {
		query = append(query, qs)
	}
	// delay=0 asks the remote server to put the build at the front of its queue
	query = append(query, "delay=0")

	return path + "?" + strings.Join(query, "&")
}

// JobURL produces status-query URLs under {base}/job/{job}/.
type JobURL struct {
	root  string
	token string
}

func NewJobURL(server domain.RemoteServer, job, token string) JobURL {
	return JobURL{
		root:  trimSlash(server.Address) + "/job/" + EncodeValue(job) + "/",
		token: token,
	}
}

// Root is the job page, used for display.
func (u JobURL) Root() string { return u.root }

func (u JobURL) withToken(path string) string {
	if u.token == "" {
		return path
	}
	return path + "?token=" + EncodeValue(u.token)
}

func (u JobURL) Info() string { return u.withToken(u.root + "api/json") }

func (u JobURL) LastBuild() string { return u.withToken(u.root + "lastBuild/api/json") }

func (u JobURL) Build(number int) string {
	return u.withToken(u.root + strconv.Itoa(number) + "/api/json")
}

// BuildPage is the human-facing page of a build.
func (u JobURL) BuildPage(number int) string {
	return u.root + strconv.Itoa(number) + "/"
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
