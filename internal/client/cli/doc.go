// Package cli provides the interactive obyektivka command-line client.
//
// Every command maps to a route (/documents/7, /references, /login, ...)
// and runs only after the route guard allows it: protected routes need a
// session, sign-in routes are closed to a signed-in user. The route watcher
// reports when a session ends while a command is running.
//
// Key features:
//   - Login / Register through the host's Telegram identity, with a prompt
//     fallback
//   - Documents: list, show, create and update from JSON forms, delete,
//     download the generated PDF, send it through the bot
//   - References: list, show, create, edit, delete
//   - Backend validation messages translated to Uzbek
//
// App.Run settles the session first and then starts the REPL, which blocks
// until the user exits.
package cli
