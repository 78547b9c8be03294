// Package catalog реализует HTTP-клиент удалённого каталога изображений.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"roi-harvester/internal/domain/port"
)

const maxBody = 4 << 20

// ErrEmptyResult реестр не вернул записей для идентификатора.
var ErrEmptyResult = errors.New("catalog: empty result")

// Config параметры подключения к каталогу.
type Config struct {
	FileInfoURL string
	DetailsURL  string
	User        string
	Password    string
	Timeout     time.Duration
}

// Client HTTP-клиент каталога
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient создаёт клиент; при нулевом таймауте используется 30 секунд.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{cfg: cfg, http: httpClient}
}

type fileInfoResponse struct {
	ImagePath string `json:"IMAGE_PATH"`
	FileType  string `json:"FILE_TYPE"`
}

// FileInfo запрашивает дескриптор файла
func (c *Client) FileInfo(ctx context.Context, id int64) (*port.FileInfo, error) {
	u, err := url.Parse(c.cfg.FileInfoURL)
	if err != nil {
		return nil, fmt.Errorf("catalog: fileinfo url: %w", err)
	}
	q := u.Query()
	q.Set("id", strconv.FormatInt(id, 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("catalog: new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	var resp fileInfoResponse
	if err := c.do(req, &resp); err != nil {
		return nil, fmt.Errorf("catalog: fileinfo %d: %w", id, err)
	}
	return &port.FileInfo{ImagePath: resp.ImagePath, FileType: resp.FileType}, nil
}

type detailsRequest struct {
	IDs []string `json:"ids"`
}

type detailsResponse struct {
	Result []struct {
		Width  json.RawMessage `json:"ENC_EBREITE"`
		Height json.RawMessage `json:"ENC_EHOEHE"`
	} `json:"Result"`
}

// TrustedSize запрашивает ширину и высоту из реестра деталей
func (c *Client) TrustedSize(ctx context.Context, id int64) ([2]float64, error) {
	body, err := json.Marshal(detailsRequest{IDs: []string{strconv.FormatInt(id, 10)}})
	if err != nil {
		return [2]float64{}, fmt.Errorf("catalog: encode details request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.DetailsURL, bytes.NewReader(body))
	if err != nil {
		return [2]float64{}, fmt.Errorf("catalog: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cfg.User != "" {
		req.SetBasicAuth(c.cfg.User, c.cfg.Password)
	}

	var resp detailsResponse
	if err := c.do(req, &resp); err != nil {
		return [2]float64{}, fmt.Errorf("catalog: details %d: %w", id, err)
	}
	if len(resp.Result) == 0 {
		return [2]float64{}, fmt.Errorf("catalog: details %d: %w", id, ErrEmptyResult)
	}

	w, wok, err := parseDimension(resp.Result[0].Width)
	if err != nil {
		return [2]float64{}, fmt.Errorf("catalog: details %d width: %w", id, err)
	}
	h, hok, err := parseDimension(resp.Result[0].Height)
	if err != nil {
		return [2]float64{}, fmt.Errorf("catalog: details %d height: %w", id, err)
	}
	if !wok || !hok {
		return [2]float64{}, nil
	}
	return [2]float64{w, h}, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("http %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("json decode: %w", err)
	}
	return nil
}

// parseDimension принимает число, строку с числом, пустую строку или null.
// ok=false означает, что значения нет.
func parseDimension(raw json.RawMessage) (float64, bool, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, false, nil
	}

	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return 0, false, err
		}
		str = strings.TrimSpace(str)
		if str == "" {
			return 0, false, nil
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(str, ",", "."), 64)
		if err != nil {
			return 0, false, err
		}
		return v, v != 0, nil
	}

	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false, err
	}
	return v, v != 0, nil
}

var _ port.Catalog = (*Client)(nil)
