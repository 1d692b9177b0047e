// Package core provides the business logic for spreadsheet export and import.
//
// The package holds all domain logic independent of any transport. The HTTP
// API in internal/web and the command line in internal/cli both drive the
// same [Service], so an import from either path passes the same checks and
// lands in the same audit ledger.
//
// # Entity Registry
//
// Entity kinds are registered at init time using [Register]. Each
// [EntityDefinition] describes one table: its fields, the references it
// holds to earlier kinds, the natural key used to detect rows that already
// exist, and the column other kinds use to reference it.
//
//	core.Register(core.EntityDefinition{
//	    Kind:        "projects",
//	    Table:       "projects",
//	    Label:       "Projects",
//	    Order:       20,
//	    Refs:        []core.RefSpec{{Name: "User", Column: "user_id", Target: "users", Required: true}},
//	    Fields:      []core.FieldSpec{{Name: "Name", Column: "name", Type: core.FieldText, Required: true}},
//	    NaturalKey:  []string{"user_id", "name"},
//	    LabelColumn: "name",
//	})
//
// Registration order does not matter; [Ordered] sorts by Order, and a
// reference must point at a kind with a lower Order.
//
// # Import Pipeline
//
// [Service.Import] runs a request through these stages, stopping at the
// first rejection:
//
//  1. Access: admin principal and, for the console, an allowed origin
//  2. Rate limit: the per-admin import quota
//  3. Shape: filename, extension, content type, size and magic number
//  4. Scan: attack patterns in the raw prefix and the xlsx zip parts
//  5. Structure: sheet aliases, recognised kinds and the row limit
//  6. Import: one transaction, one savepoint per row
//
// Rows that fail parsing, reference resolution or the cell scan are rejected
// individually and reported in [ImportStats]. A storage failure rolls the
// whole import back. Every stage outcome is written to the [Ledger].
//
// # Export
//
// [Service.Export] renders every non-empty table to one workbook, writing
// references as the target's label so the file can be re-imported into
// another instance. Re-importing an export skips every row.
//
// # Error Handling
//
// Pipeline failures are returned as [*PipelineError] carrying an
// [ErrorKind], the stage and a stable reason. [MapError] turns any error
// into a [UserMessage] with a support code:
//
//   - AUTH001-AUTH002: Access denied
//   - FILE001-FILE009: Malformed input
//   - SEC001-SEC002: Security rejections
//   - LIM001-LIM002: Structural and concurrency limits
//   - RATE001-RATE002: Rate limiting
//   - DB001-DB007: Storage failures
//
// # Audit Severity
//
//   - Low: Accepted stages and exports
//   - Medium: Rejected input and quota hits
//   - High: Security rejections and storage failures
//   - Critical: Rows that ask for admin capability
package core
