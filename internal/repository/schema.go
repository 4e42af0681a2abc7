package repository

// Schema definitions for the Harrier database.
// Compatible with both SQLite and PostgreSQL.

const schemaApplications = `
CREATE TABLE IF NOT EXISTS applications (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    applicant_id TEXT NOT NULL,
    features TEXT NOT NULL,
    submitted_at TIMESTAMP NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_applications_tenant ON applications(tenant_id);
CREATE INDEX IF NOT EXISTS idx_applications_applicant ON applications(tenant_id, applicant_id);
CREATE INDEX IF NOT EXISTS idx_applications_submitted ON applications(tenant_id, submitted_at);
`

const schemaFraudRuleConfigs = `
CREATE TABLE IF NOT EXISTS fraud_rule_configs (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    version TEXT NOT NULL,
    expression TEXT NOT NULL,
    bands TEXT NOT NULL,
    weight REAL NOT NULL DEFAULT 1.0,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, tenant_id, version)
);

CREATE INDEX IF NOT EXISTS idx_fraud_rule_configs_tenant ON fraud_rule_configs(tenant_id);
CREATE INDEX IF NOT EXISTS idx_fraud_rule_configs_enabled ON fraud_rule_configs(tenant_id, enabled);
`

const schemaAnalyses = `
CREATE TABLE IF NOT EXISTS analyses (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    application_id TEXT NOT NULL,
    decision TEXT NOT NULL,
    risk_band TEXT NOT NULL,
    pd_percent REAL NOT NULL,
    fraud_decision TEXT NOT NULL,
    fraud_score REAL NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    result TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analyses_tenant ON analyses(tenant_id);
CREATE INDEX IF NOT EXISTS idx_analyses_application ON analyses(tenant_id, application_id);
CREATE INDEX IF NOT EXISTS idx_analyses_decision ON analyses(tenant_id, decision);
CREATE INDEX IF NOT EXISTS idx_analyses_timestamp ON analyses(tenant_id, timestamp);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaApplications,
		schemaFraudRuleConfigs,
		schemaAnalyses,
	}
}
