package transport_test

import (
	"net/http"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/temirov/socialmigrate/internal/transport"
)

const testRejectionPreviewLimitConstant = 200

func TestRemoteRejectionErrorMessagePreview(testInstance *testing.T) {
	testCases := []struct {
		name            string
		body            string
		expectedMessage string
	}{
		{
			name:            "json message",
			body:            `{"message":" community not found "}`,
			expectedMessage: "community not found",
		},
		{
			name:            "json error field",
			body:            `{"error":"unauthorized"}`,
			expectedMessage: "unauthorized",
		},
		{
			name:            "empty body",
			body:            "  ",
			expectedMessage: "<empty body>",
		},
		{
			name:            "short plain body",
			body:            "gateway timeout\n",
			expectedMessage: "gateway timeout",
		},
		{
			name:            "long multibyte body truncated on rune boundary",
			body:            "a" + strings.Repeat("é", testRejectionPreviewLimitConstant),
			expectedMessage: "a" + strings.Repeat("é", testRejectionPreviewLimitConstant-1) + "...",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			rejection := transport.RemoteRejectionError{
				Method:     http.MethodPost,
				URL:        "https://api.us.amity.co/v3/communities",
				StatusCode: http.StatusBadGateway,
				Body:       []byte(testCase.body),
			}
			message := rejection.Message()
			require.Equal(subTest, testCase.expectedMessage, message)
			require.True(subTest, utf8.ValidString(message))
			require.Contains(subTest, rejection.Error(), "HTTP 502")
		})
	}
}
