package hook

import (
	"context"
	"encoding/json"
	"github.com/jxo-me/talpa/consts"
	"github.com/jxo-me/talpa/core/hook"
	"github.com/jxo-me/talpa/core/logger"
	"github.com/pkg/errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	Code = "webhook"

	defaultTimeout = 10 * time.Second
)

var _ hook.IHook = (*Webhook)(nil)

// Webhook calls a user-defined URL after every dig or plug.
type Webhook struct {
	WebhookURL         string
	WebhookRequestBody string
	WebhookHeaders     string
	client             *http.Client
	logger             logger.ILogger
}

// hasJSONPrefix returns true if the string starts with a JSON open brace.
func hasJSONPrefix(s string) bool {
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}

func NewHook(url string, requestBody string, headers string, log logger.ILogger) *Webhook {
	if log == nil {
		log = logger.Default()
	}
	return &Webhook{
		WebhookURL:         url,
		WebhookRequestBody: requestBody,
		WebhookHeaders:     headers,
		client:             &http.Client{Timeout: defaultTimeout},
		logger:             log,
	}
}

func (w *Webhook) String() string {
	return Code
}

// ExecHook 成功和失败都要触发webhook
func (w *Webhook) ExecHook(ctx context.Context, ev *hook.Event) error {
	if w.WebhookURL == "" {
		return nil
	}
	method := http.MethodGet
	postPara := ""
	contentType := "application/x-www-form-urlencoded"
	if w.WebhookRequestBody != "" {
		method = http.MethodPost
		postPara = w.replacePara(ev, w.WebhookRequestBody, true)
		if json.Valid([]byte(postPara)) {
			contentType = consts.ContentTypeJSON
		} else if hasJSONPrefix(postPara) {
			// 如果 RequestBody 的 JSON 无效但前缀为 JSON 括号则为 JSON
			w.logger.Warnf("webhook request body is not valid JSON")
		}
	}
	requestURL := w.replacePara(ev, w.WebhookURL, false)
	u, err := url.Parse(requestURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.Errorf("webhook url %q is invalid", w.WebhookURL)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), strings.NewReader(postPara))
	if err != nil {
		return errors.Wrap(err, "build webhook request")
	}
	for key, value := range w.CheckParseHeaders(w.WebhookHeaders) {
		req.Header.Add(key, value)
	}
	req.Header.Set(consts.HeaderContentType, contentType)

	resp, err := w.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "call webhook")
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode >= http.StatusBadRequest {
		return errors.Errorf("webhook returned %d: %q", resp.StatusCode, body)
	}
	w.logger.Debugf("webhook called, response: %q", body)
	return nil
}

// replacePara 替换参数. Values substituted into a URL are query-escaped.
func (w *Webhook) replacePara(ev *hook.Event, orgPara string, isBody bool) string {
	errText := ""
	if ev.Err != nil {
		errText = ev.Err.Error()
	}
	values := []struct{ key, value string }{
		{"#{operation}", ev.Operation},
		{"#{hostname}", ev.Hostname},
		{"#{service}", ev.Service},
		{"#{target}", ev.Target},
		{"#{tunnel}", ev.TunnelID},
		{"#{status}", string(ev.Status)},
		{"#{error}", errText},
	}
	for _, v := range values {
		value := v.value
		if isBody {
			value = jsonEscape(value)
		} else {
			value = url.QueryEscape(value)
		}
		orgPara = strings.ReplaceAll(orgPara, v.key, value)
	}
	return orgPara
}

// jsonEscape makes s safe inside a quoted JSON string.
func jsonEscape(s string) string {
	b, _ := json.Marshal(s)
	return string(b[1 : len(b)-1])
}

// CheckParseHeaders reads one "Key: Value" header per line.
func (w *Webhook) CheckParseHeaders(headerStr string) (headers map[string]string) {
	headers = make(map[string]string)
	headerStr = strings.ReplaceAll(headerStr, "\r\n", "\n")
	for _, line := range strings.Split(headerStr, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(key) == "" {
			w.logger.Warnf("%s: invalid header", line)
			continue
		}
		headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return headers
}
