// Package admincli implements the LearnHub operator tool.
//
// Commands:
//   - migrate: apply pending database migrations
//   - seed [-email addr] [-name "Full Name"]: create the system-protected
//     super admin if no admin exists; the password is read from the
//     terminal without echo
//
// The tool talks to the database directly and shares the server's
// configuration sources (config file, environment, flags).
package admincli
