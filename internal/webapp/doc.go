// Package webapp serves the catalogue JSON API: clothing uploads, outfit
// recommendations, preference history, and the image search proxy.
//
// Routes use net/http method patterns. When paths.api_token is set every
// request must carry "Authorization: Bearer <token>".
package webapp
