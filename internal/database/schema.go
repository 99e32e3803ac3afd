package database

// schema mirrors the tables the original MySQL deployment used, keyed
// as the pipeline requires: staging rows by surrogate id, production
// NAV rows unique on (fund_code, nav_date), metrics and scores unique
// on (fund_code, calc_date), and an append-only update log.
const schema = `
CREATE TABLE IF NOT EXISTS tmp_fund_nav (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    fund_code     TEXT,
    nav_date      TEXT,
    unit_nav      REAL,
    accum_nav     REAL,
    daily_return  REAL,
    source        TEXT,
    check_status  INTEGER DEFAULT 0,
    check_msg     TEXT,
    created_at    TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS fund_nav (
    fund_code     TEXT NOT NULL,
    nav_date      TEXT NOT NULL,
    unit_nav      REAL NOT NULL,
    accum_nav     REAL,
    daily_return  REAL,
    source        TEXT,
    created_at    TEXT NOT NULL DEFAULT (datetime('now')),
    PRIMARY KEY (fund_code, nav_date)
);

CREATE TABLE IF NOT EXISTS fund_info (
    fund_code       TEXT PRIMARY KEY,
    fund_name       TEXT NOT NULL,
    fund_type       TEXT,
    company_name    TEXT,
    manager_name    TEXT,
    current_scale   REAL,
    management_fee  REAL,
    establish_date  TEXT,
    active          INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS fund_holding (
    fund_code    TEXT NOT NULL,
    report_date  TEXT NOT NULL,
    stock_code   TEXT NOT NULL,
    stock_name   TEXT,
    ratio        REAL,
    PRIMARY KEY (fund_code, report_date, stock_code)
);

CREATE TABLE IF NOT EXISTS fund_metrics (
    fund_code        TEXT NOT NULL,
    calc_date        TEXT NOT NULL,
    return_1m        REAL,
    return_3m        REAL,
    return_1y        REAL,
    return_3y        REAL,
    sharpe_1y        REAL,
    sharpe_3y        REAL,
    sortino_1y       REAL,
    calmar_3y        REAL,
    max_drawdown_1y  REAL,
    max_drawdown_3y  REAL,
    volatility_1y    REAL,
    volatility_3y    REAL,
    alpha_1y         REAL,
    beta_1y          REAL,
    updated_at       TEXT NOT NULL DEFAULT (datetime('now')),
    PRIMARY KEY (fund_code, calc_date)
);

CREATE TABLE IF NOT EXISTS fund_score (
    fund_code        TEXT NOT NULL,
    calc_date        TEXT NOT NULL,
    total_score      INTEGER NOT NULL,
    level            TEXT NOT NULL,
    return_score     INTEGER NOT NULL,
    risk_score       INTEGER NOT NULL,
    stability_score  INTEGER NOT NULL,
    scale_score      INTEGER NOT NULL,
    fee_score        INTEGER NOT NULL,
    updated_at       TEXT NOT NULL DEFAULT (datetime('now')),
    PRIMARY KEY (fund_code, calc_date)
);

CREATE TABLE IF NOT EXISTS data_update_log (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id        TEXT NOT NULL,
    table_name    TEXT NOT NULL,
    as_of_date    TEXT NOT NULL,
    record_count  INTEGER NOT NULL,
    status        TEXT NOT NULL,
    error_msg     TEXT,
    start_time    TEXT NOT NULL,
    end_time      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tmp_fund_nav_status ON tmp_fund_nav (check_status);
CREATE INDEX IF NOT EXISTS idx_fund_nav_date ON fund_nav (nav_date);
CREATE INDEX IF NOT EXISTS idx_update_log_end_time ON data_update_log (end_time);
`
