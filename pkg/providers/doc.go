/*
Package providers contains ActionProvider implementations.

  - Funcs: in-process Go functions registered by action name.
  - Process: allow-listed local commands. Session variables are passed as
    SWITCHBOARD_VAR_* environment variables and the command prints
    {"outcome": ..., "variables": {...}} on stdout.
  - Webhook: a JSON POST to an HTTP endpoint; 202 Accepted defers the
    result to a later action callback.
  - Router: dispatches by action name to any of the above.

LoadConfig and Build wire a Router from an actions.yaml file.
*/
package providers
