package ecp

import (
	"net"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	ecpHTTPClientTimeout         = 10 * time.Second
	ecpHTTPDialTimeout           = 5 * time.Second
	ecpHTTPKeepAlive             = 30 * time.Second
	ecpHTTPResponseHeaderTimeout = 5 * time.Second
	ecpHTTPExpectContinueTimeout = 1 * time.Second
	ecpHTTPIdleConnTimeout       = 90 * time.Second
)

var ecpHTTPTransport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   ecpHTTPDialTimeout,
		KeepAlive: ecpHTTPKeepAlive,
	}).DialContext,
	ResponseHeaderTimeout: ecpHTTPResponseHeaderTimeout,
	ExpectContinueTimeout: ecpHTTPExpectContinueTimeout,
	IdleConnTimeout:       ecpHTTPIdleConnTimeout,
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout:   ecpHTTPClientTimeout,
		Transport: ecpHTTPTransport,
	}
}

func newRetryableHTTPClient(retryMax int) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = retryMax
	retryClient.Logger = nil
	retryClient.HTTPClient = newHTTPClient()

	return retryClient.StandardClient()
}
