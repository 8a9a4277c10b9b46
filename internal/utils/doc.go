// Package utils exposes helpers shared by every obsenv command.
//
// ConfigurationLoader layers the embedded defaults, an optional configuration
// file, an optional dotenv file and OBSENV_* environment variables through
// Viper. LoggerFactory builds the zap loggers handed to each service.
package utils
