// Package app wires the conduit demo application.
//
// It builds the shared registry (middleware, controllers, commands and
// process-wide services), the kernel with its global middleware and
// default OPTIONS handler, and loads the route files:
//
//	GET    /                       home page (view "home")
//	GET    /health                 health JSON
//	GET    /files/{any:.*}         download from the document root
//	GET    /api/users              list users
//	GET    /api/users/{id}         show a user
//	POST   /api/users              create a user (auth)
//	DELETE /api/users/{id}         delete a user (auth)
//	POST   /api/users/{id}/welcome queue the welcome command (auth)
//
// Every /api route runs behind the throttle middleware.
//
// Example Usage:
//
//	a, err := app.New(cfg, app.Options{Logger: logger, Metrics: metrics})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	http.ListenAndServe(":9501", a.Kernel())
package app
