package app

// Container ids of the application services
const (
	ConfigID    = "config"
	LoggerID    = "logger"
	TableID     = "routing.table"
	StoreID     = "users.store"
	ViewsID     = "view.engine"
	PublisherID = "worker.publisher"

	AuthID         = "middleware.auth"
	UsersID        = "controller.users"
	WelcomeCommand = "command.welcome"
)
