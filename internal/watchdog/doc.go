// Package watchdog implements the rule evaluation engine and webhook delivery
// for contexthub-server. Rules are evaluated on a fixed cadence against the
// context store statistics; webhooks are delivered to Teams, Slack, PagerDuty,
// or generic HTTP targets.
package watchdog
