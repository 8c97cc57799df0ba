// Package record is an ActiveRecord style mapper between SQL rows and
// in-memory records.
//
// A record type is declared once with Define and bound to a storage
// connection through a Client:
//
//	User := record.Define(record.TypeConfig{
//	    Name:       "User",
//	    Accessible: []string{"email", "first_name", "last_name", "role_id"},
//	    Validators: []record.Validator{
//	        validate.Presence("email"),
//	        validate.Uniqueness("email"),
//	    },
//	})
//
//	users := client.Model(User)
//	u, err := users.Create(ctx, map[string]any{"email": "a@x.com", "role_id": 1})
//	if err != nil {
//	    return err // configuration or read failure
//	}
//	if !u.IsPersisted() {
//	    return u.Errors() // validation failure or rejected write
//	}
//
// # Lifecycle
//
// A record is new until it is inserted or loaded, and new again after it
// is destroyed. Save runs the hooks of the type, validates, and inserts or
// updates. A before-hook returning false cancels the operation; an
// after-hook returning false silences every later after-hook of that
// record instance.
//
// Backend write failures do not surface as errors from Save or Destroy.
// They are recorded in Errors and in PersistenceError and the operation
// reports false.
//
// # Associations
//
// BelongsTo, HasOne and HasMany follow the naming conventions of the
// types involved. HasAndBelongsToMany returns a Link over a pivot table
// whose record type is synthesized once per table pair.
//
// # Transactions
//
// The client exposes a single level session transaction with Begin,
// Commit and Rollback, and Transaction for the common begin, run and
// commit or roll back pattern.
package record
