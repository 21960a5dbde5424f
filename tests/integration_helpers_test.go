package tests

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/temirov/orgmigrate/internal/migration"
)

const (
	sourceOrganizationNameConstant = "acme"
	targetOrganizationNameConstant = "acme-new"
	integrationOperatorLogin       = "integration-operator"

	apiPathPrefixConstant           = "/api/v3"
	jsonContentTypeConstant         = "application/json"
	notFoundResponseBodyConstant    = `{"message":"Not Found"}`
	failureResponseBodyConstant     = `{"message":"simulated failure"}`
	defaultWriteResponseConstant    = `{}`
	emptyCollectionResponseConstant = `[]`

	pageQueryParameterConstant        = "page"
	firstPageNumberConstant           = "1"
	roleQueryParameterConstant        = "role"
	roleRouteKeySeparatorConstant     = "?role="
	writeRouteKeySeparatorConstant    = " "
	publicKeyResponseTemplateConstant = `{"key_id":%q,"key":%q}`
)

// recordedWrite captures one mutating request the fake platform received.
type recordedWrite struct {
	method string
	path   string
	body   string
}

// fakeGitHubAPI serves both scope organizations of a run from one server.
// Requests are routed on the path under the enterprise API prefix, so the
// organization segment keeps source and target traffic apart. Listings
// answer only the first page; unknown GET paths answer 404, which doubles
// as the absent answer for target existence probes.
type fakeGitHubAPI struct {
	server        *httptest.Server
	mutex         sync.Mutex
	getResponses  map[string]string
	getStatuses   map[string]int
	writeStatuses map[string]int
	writes        []recordedWrite
}

func newFakeGitHubAPI(testInstance *testing.T) *fakeGitHubAPI {
	testInstance.Helper()
	fakeAPI := &fakeGitHubAPI{
		getResponses:  map[string]string{},
		getStatuses:   map[string]int{},
		writeStatuses: map[string]int{},
	}
	fakeAPI.server = httptest.NewServer(http.HandlerFunc(fakeAPI.handle))
	testInstance.Cleanup(fakeAPI.server.Close)
	return fakeAPI
}

func (fakeAPI *fakeGitHubAPI) baseURL() string {
	return fakeAPI.server.URL
}

// respondGET registers the first-page body of one GET route. Role-filtered
// listings append "?role=<role>" to the route key.
func (fakeAPI *fakeGitHubAPI) respondGET(routeKey string, responseBody string) {
	fakeAPI.mutex.Lock()
	defer fakeAPI.mutex.Unlock()
	fakeAPI.getResponses[routeKey] = responseBody
}

// failGET makes one GET route answer the provided status instead of a body.
func (fakeAPI *fakeGitHubAPI) failGET(routeKey string, statusCode int) {
	fakeAPI.mutex.Lock()
	defer fakeAPI.mutex.Unlock()
	fakeAPI.getStatuses[routeKey] = statusCode
}

// failWrite makes one mutating route answer the provided status. The key is
// "<METHOD> <path>". The request is still recorded.
func (fakeAPI *fakeGitHubAPI) failWrite(method string, routePath string, statusCode int) {
	fakeAPI.mutex.Lock()
	defer fakeAPI.mutex.Unlock()
	fakeAPI.writeStatuses[method+writeRouteKeySeparatorConstant+routePath] = statusCode
}

// registerPreflight satisfies the credential and organization reachability
// probes for the provided organizations.
func (fakeAPI *fakeGitHubAPI) registerPreflight(organizationNames ...string) {
	fakeAPI.respondGET("/user", fmt.Sprintf(`{"login":%q}`, integrationOperatorLogin))
	for _, organizationName := range organizationNames {
		fakeAPI.respondGET("/orgs/"+organizationName, fmt.Sprintf(`{"login":%q,"id":1}`, organizationName))
	}
}

func (fakeAPI *fakeGitHubAPI) recordedWrites() []recordedWrite {
	fakeAPI.mutex.Lock()
	defer fakeAPI.mutex.Unlock()
	return append([]recordedWrite{}, fakeAPI.writes...)
}

func (fakeAPI *fakeGitHubAPI) writesTo(method string, routePath string) []recordedWrite {
	matchingWrites := make([]recordedWrite, 0)
	for _, capturedWrite := range fakeAPI.recordedWrites() {
		if capturedWrite.method == method && capturedWrite.path == routePath {
			matchingWrites = append(matchingWrites, capturedWrite)
		}
	}
	return matchingWrites
}

func (fakeAPI *fakeGitHubAPI) handle(responseWriter http.ResponseWriter, request *http.Request) {
	requestPath := strings.TrimPrefix(request.URL.Path, apiPathPrefixConstant)
	responseWriter.Header().Set("Content-Type", jsonContentTypeConstant)

	if request.Method == http.MethodGet {
		queryValues := request.URL.Query()
		if pageNumber := queryValues.Get(pageQueryParameterConstant); len(pageNumber) > 0 && pageNumber != firstPageNumberConstant {
			_, _ = responseWriter.Write([]byte(emptyCollectionResponseConstant))
			return
		}

		routeKey := requestPath
		if roleFilter := queryValues.Get(roleQueryParameterConstant); len(roleFilter) > 0 {
			routeKey = requestPath + roleRouteKeySeparatorConstant + roleFilter
		}

		fakeAPI.mutex.Lock()
		statusCode, statusConfigured := fakeAPI.getStatuses[routeKey]
		responseBody, routeConfigured := fakeAPI.getResponses[routeKey]
		fakeAPI.mutex.Unlock()

		if statusConfigured {
			responseWriter.WriteHeader(statusCode)
			_, _ = responseWriter.Write([]byte(failureResponseBodyConstant))
			return
		}
		if !routeConfigured {
			responseWriter.WriteHeader(http.StatusNotFound)
			_, _ = responseWriter.Write([]byte(notFoundResponseBodyConstant))
			return
		}
		_, _ = responseWriter.Write([]byte(responseBody))
		return
	}

	bodyBytes, _ := io.ReadAll(request.Body)
	writeKey := request.Method + writeRouteKeySeparatorConstant + requestPath
	fakeAPI.mutex.Lock()
	fakeAPI.writes = append(fakeAPI.writes, recordedWrite{method: request.Method, path: requestPath, body: string(bodyBytes)})
	statusCode, statusConfigured := fakeAPI.writeStatuses[writeKey]
	fakeAPI.mutex.Unlock()

	if statusConfigured {
		responseWriter.WriteHeader(statusCode)
		_, _ = responseWriter.Write([]byte(failureResponseBodyConstant))
		return
	}
	responseWriter.WriteHeader(http.StatusCreated)
	_, _ = responseWriter.Write([]byte(defaultWriteResponseConstant))
}

// publicKeyResponseBody builds a secrets public-key answer whose key material
// decodes to a valid 32-byte sealing key.
func publicKeyResponseBody(keyIdentifier string) string {
	encodedKey := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32))
	return fmt.Sprintf(publicKeyResponseTemplateConstant, keyIdentifier, encodedKey)
}

// integrationRunConfiguration points both scopes of a run at the fake
// platform. Tokens stay on their default environment declarations, which
// TestMain satisfies.
func integrationRunConfiguration(fakeAPI *fakeGitHubAPI) migration.RunConfiguration {
	return migration.RunConfiguration{
		Source: migration.ScopeConfiguration{
			Organization: sourceOrganizationNameConstant,
			Token:        migration.DefaultSourceTokenSource,
			BaseURL:      fakeAPI.baseURL(),
		},
		Target: migration.ScopeConfiguration{
			Organization: targetOrganizationNameConstant,
			Token:        migration.DefaultTargetTokenSource,
			BaseURL:      fakeAPI.baseURL(),
		},
	}
}

// executeCommand runs one built command in process with a background context.
func executeCommand(testInstance *testing.T, command *cobra.Command, arguments ...string) error {
	testInstance.Helper()
	command.SetContext(context.Background())
	command.SetArgs(append([]string{}, arguments...))
	command.SetOut(io.Discard)
	command.SetErr(io.Discard)
	return command.Execute()
}

// readCSVFile parses a headered CSV file into one map per data row.
func readCSVFile(testInstance *testing.T, filePath string) []map[string]string {
	testInstance.Helper()
	fileHandle, openError := os.Open(filePath)
	require.NoError(testInstance, openError)
	defer func() { _ = fileHandle.Close() }()

	csvReader := csv.NewReader(fileHandle)
	allRows, readError := csvReader.ReadAll()
	require.NoError(testInstance, readError)
	require.NotEmpty(testInstance, allRows)

	headerColumns := allRows[0]
	parsedRows := make([]map[string]string, 0, len(allRows)-1)
	for _, dataRow := range allRows[1:] {
		require.Len(testInstance, dataRow, len(headerColumns))
		rowValues := make(map[string]string, len(headerColumns))
		for columnIndex, columnName := range headerColumns {
			rowValues[columnName] = dataRow[columnIndex]
		}
		parsedRows = append(parsedRows, rowValues)
	}
	return parsedRows
}

// findReportRow locates the report row of one entity, failing the test when
// the run never recorded it.
func findReportRow(testInstance *testing.T, reportRows []map[string]string, className string, entityName string) map[string]string {
	testInstance.Helper()
	for _, reportRow := range reportRows {
		if reportRow["class"] == className && reportRow["name"] == entityName {
			return reportRow
		}
	}
	testInstance.Fatalf("report row not found: class=%s name=%s", className, entityName)
	return nil
}
