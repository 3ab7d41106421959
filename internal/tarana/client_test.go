package tarana

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*HTTPClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(ClientConfig{BaseURL: srv.URL, APIKey: "test-key"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client, srv
}

func TestGetRadioDecodesEnvelope(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/network/radios/RN001" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		io.WriteString(w, `{"data":{"serialNumber":"RN001","hostName":"FARM-7","connected":true,"softwareVersion":"A5.3.1.2"}}`)
	})

	radio, err := client.GetRadio(context.Background(), "RN001")
	if err != nil {
		t.Fatalf("get radio: %v", err)
	}
	if radio.SerialNumber != "RN001" || radio.HostName != "FARM-7" {
		t.Fatalf("unexpected radio %+v", radio)
	}
	if !radio.Reachable() {
		t.Fatal("connected radio must report reachable")
	}
}

func TestGetRadioDecodesRootRecord(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"serialNumber":"RN002","connected":false}`)
	})

	radio, err := client.GetRadio(context.Background(), "RN002")
	if err != nil {
		t.Fatalf("get radio: %v", err)
	}
	if radio.SerialNumber != "RN002" || radio.Reachable() {
		t.Fatalf("unexpected radio %+v", radio)
	}
}

func TestGetRadioNotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"message":"radio not found"}`)
	})

	_, err := client.GetRadio(context.Background(), "RN404")
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if notFound.SerialNumber != "RN404" {
		t.Fatalf("unexpected serial %q", notFound.SerialNumber)
	}
	if !IsNotFound(err) {
		t.Fatal("IsNotFound must recognize the error")
	}
}

func TestPushConfigAccepts202(t *testing.T) {
	var got RadioConfig
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("expected PATCH, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	})

	err := client.PushConfig(context.Background(), "RN001", RadioConfig{HostName: "RECLAIMED"})
	if err != nil {
		t.Fatalf("push config: %v", err)
	}
	if got.HostName != "RECLAIMED" {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestDeleteSendsSerialList(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/network/radios/delete" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body map[string][]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if len(body["serialNumbers"]) != 1 || body["serialNumbers"][0] != "RN001" {
			t.Errorf("unexpected body %v", body)
		}
		w.WriteHeader(http.StatusAccepted)
	})

	if err := client.Delete(context.Background(), "RN001"); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestStartSpeedTestReturnsOperationID(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":{"operationId":"op-123"}}`)
	})

	id, err := client.StartSpeedTest(context.Background(), "RN001")
	if err != nil {
		t.Fatalf("start speed test: %v", err)
	}
	if id != "op-123" {
		t.Fatalf("expected op-123, got %q", id)
	}
}

func TestStartSpeedTestRejectsEmptyOperationID(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":{}}`)
	})

	_, err := client.StartSpeedTest(context.Background(), "RN001")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if !strings.Contains(apiErr.Message, "no operation id") {
		t.Fatalf("unexpected message %q", apiErr.Message)
	}
}

func TestGetSpeedTestDecodesResult(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("serialNumber") != "RN001" {
			t.Errorf("missing serialNumber query, got %s", r.URL.RawQuery)
		}
		io.WriteString(w, `{"data":{"status":"COMPLETED","downlinkThroughput":248000.5,"uplinkThroughput":51000.0,"latencyMillis":14.2}}`)
	})

	result, err := client.GetSpeedTest(context.Background(), "op-123", "RN001")
	if err != nil {
		t.Fatalf("get speed test: %v", err)
	}
	if !result.Terminal() || !result.Succeeded() {
		t.Fatalf("expected completed result, got %+v", result)
	}
	if *result.DownlinkThroughput != 248000.5 {
		t.Fatalf("unexpected downlink %v", *result.DownlinkThroughput)
	}
}

func TestAPIErrorCarriesServerMessage(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		io.WriteString(w, `{"error":{"message":"hostname already in use"}}`)
	})

	err := client.PushConfig(context.Background(), "RN001", RadioConfig{HostName: "DUP"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected status %d", apiErr.StatusCode)
	}
	if apiErr.Message != "hostname already in use" {
		t.Fatalf("unexpected message %q", apiErr.Message)
	}
}

func TestTransportErrorOnConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	client, err := NewClient(ClientConfig{BaseURL: srv.URL, APIKey: "test-key"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.GetRadio(context.Background(), "RN001")
	var transport *TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestUpgradeFirmwareSurfacesItemError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":{"items":[{"error":{"message":"package A5.3.1.2 is currently active"}}]}}`)
	})

	err := client.UpgradeFirmware(context.Background(), "RN001", "pkg-1", true, false)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if !strings.Contains(apiErr.Message, "currently active") {
		t.Fatalf("unexpected message %q", apiErr.Message)
	}
}

func TestListFirmwarePackages(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("rnCompatible") != "true" || q.Get("sortOrder") != "DESC" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		io.WriteString(w, `{"data":{"items":[{"id":"pkg-2","tags":[{"name":"Stable"}]},{"id":"pkg-1","tags":[{"name":"Beta"}]}]}}`)
	})

	pkgs, err := client.ListFirmwarePackages(context.Background(), true, false)
	if err != nil {
		t.Fatalf("list packages: %v", err)
	}
	if len(pkgs) != 2 || pkgs[0].ID != "pkg-2" {
		t.Fatalf("unexpected packages %+v", pkgs)
	}
	if !pkgs[0].Stable() || pkgs[1].Stable() {
		t.Fatalf("stable tag mapping wrong: %+v", pkgs)
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(ClientConfig{APIKey: "k"}); err == nil {
		t.Fatal("expected error for empty base url")
	}
	if _, err := NewClient(ClientConfig{BaseURL: "https://example.com"}); err == nil {
		t.Fatal("expected error for empty api key")
	}
}
