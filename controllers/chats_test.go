package controllers

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

// Without a configured messenger bridge the controller holds a nil
// service; every endpoint must answer 503 instead of dereferencing it.
func TestChatEndpointsWithoutBridgeReturn503(t *testing.T) {
	cc := NewChatController(nil)

	app := fiber.New()
	app.Get("/chats/auth", cc.GetAuthState)
	app.Post("/chats/auth/phone", cc.SubmitPhone)
	app.Get("/chats", cc.GetChats)
	app.Get("/chats/selected", cc.GetSelectedChats)
	app.Post("/chats/sync", cc.SyncHistory)
	app.Get("/chats/:id/messages", cc.GetChatMessages)

	cases := []struct {
		method string
		path   string
	}{
		{"GET", "/chats/auth"},
		{"POST", "/chats/auth/phone"},
		{"GET", "/chats"},
		{"GET", "/chats/selected"},
		{"POST", "/chats/sync"},
		{"GET", "/chats/5/messages"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(tc.method, tc.path, nil))
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			if resp.StatusCode != fiber.StatusServiceUnavailable {
				t.Errorf("status = %d, want %d", resp.StatusCode, fiber.StatusServiceUnavailable)
			}
		})
	}
}
