package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/expenseops/autoexpense/internal/common"
)

// Config is the full application configuration, unmarshaled from viper.
type Config struct {
	User     UserConfig     `mapstructure:"user"`
	Travel   TravelConfig   `mapstructure:"travel"`
	Portal   PortalConfig   `mapstructure:"portal"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Receipts ReceiptsConfig `mapstructure:"receipts"`
	Fill     FillConfig     `mapstructure:"fill"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Types    []ExpenseType  `mapstructure:"expense_types"`
}

// UserConfig identifies the operator filing the expenses.
type UserConfig struct {
	FullName string `mapstructure:"full_name"`
	HomeCity string `mapstructure:"home_city"`
}

// TravelConfig holds travel-specific defaults.
type TravelConfig struct {
	DefaultAgency string `mapstructure:"default_agency"`
}

// PortalConfig points at the expense portal and carries its selector map.
// Selectors are environment-specific; the defaults match the known portal
// markup and are only overridden when the deployment differs.
type PortalConfig struct {
	URL       string        `mapstructure:"url"`
	Profile   string        `mapstructure:"profile"` // persistent browser profile dir
	Headless  bool          `mapstructure:"headless"`
	Selectors Selectors     `mapstructure:"selectors"`
	LoginWait time.Duration `mapstructure:"login_wait"`
}

// LLMConfig configures the receipt extractor backend.
type LLMConfig struct {
	Provider string `mapstructure:"provider"` // "openai" or "gemini"
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
	BaseURL  string `mapstructure:"base_url"`
}

// ReceiptsConfig controls folder selection.
type ReceiptsConfig struct {
	Folder     string   `mapstructure:"folder"`
	LastFolder string   `mapstructure:"last_folder"`
	Extensions []string `mapstructure:"extensions"`
}

// FillConfig tunes the fill-and-verify protocol.
type FillConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"`
	FieldTimeout    time.Duration `mapstructure:"field_timeout"`
	DropdownTimeout time.Duration `mapstructure:"dropdown_timeout"`
	UploadTimeout   time.Duration `mapstructure:"upload_timeout"`
}

// LoggingConfig configures slog and the JSONL journal.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	Journal string `mapstructure:"journal"`
}

// ExpenseType describes one selectable type in the portal's dropdown, with
// keywords used to steer the extractor's classification.
type ExpenseType struct {
	Key      string   `mapstructure:"key"`
	Label    string   `mapstructure:"label"`
	Keywords []string `mapstructure:"keywords"`
}

// Selectors maps logical form targets to element descriptors.
type Selectors struct {
	Buttons     ButtonSelectors     `mapstructure:"buttons"`
	Fields      FieldSelectors      `mapstructure:"fields"`
	Attachments AttachmentSelectors `mapstructure:"attachments"`
	Reports     ReportSelectors     `mapstructure:"reports"`
	Dialogs     DialogSelectors     `mapstructure:"dialogs"`
	Hotel       HotelSelectors      `mapstructure:"hotel"`
	Login       LoginSelectors      `mapstructure:"login"`
}

// ButtonSelectors locate the item toolbar actions.
type ButtonSelectors struct {
	CreateItem        string `mapstructure:"create_item"`
	CreateAnother     string `mapstructure:"create_another"`
	CreateAnotherSeed string `mapstructure:"create_another_seed"`
	SaveAndClose      string `mapstructure:"save_and_close"`
	SaveAndCloseSeed  string `mapstructure:"save_and_close_seed"`
	CreateReport      string `mapstructure:"create_report"`
	AddRow            string `mapstructure:"add_row"`
}

// FieldSelectors locate the item-level form controls.
type FieldSelectors struct {
	ExpenseType   string `mapstructure:"expense_type"`
	Amount        string `mapstructure:"amount"`
	Date          string `mapstructure:"date"`
	Merchant      string `mapstructure:"merchant"`
	Description   string `mapstructure:"description"`
	Purpose       string `mapstructure:"purpose"`
	AttendeeCount string `mapstructure:"attendee_count"`
	AttendeeNames string `mapstructure:"attendee_names"`
	FlightType    string `mapstructure:"flight_type"`
	FlightClass   string `mapstructure:"flight_class"`
	TicketNumber  string `mapstructure:"ticket_number"`
	DepartureCity string `mapstructure:"departure_city"`
	ArrivalCity   string `mapstructure:"arrival_city"`
	PassengerName string `mapstructure:"passenger_name"`
	Agency        string `mapstructure:"agency"`
}

// AttachmentSelectors locate the receipt-upload dropzone.
type AttachmentSelectors struct {
	DropZones   []string `mapstructure:"drop_zones"`
	AddFile     string   `mapstructure:"add_file"`
	HiddenInput string   `mapstructure:"hidden_input"`
	List        string   `mapstructure:"list"`
	EmptyText   string   `mapstructure:"empty_text"`
}

// ReportSelectors locate the report list and the rendered item rows.
type ReportSelectors struct {
	OpenMarker      string `mapstructure:"open_marker"`
	ItemRow         string `mapstructure:"item_row"`
	ItemDate        string `mapstructure:"item_date"`
	ItemAmount      string `mapstructure:"item_amount"`
	ItemMerchant    string `mapstructure:"item_merchant"`
	ItemDescription string `mapstructure:"item_description"`
}

// DialogSelectors locate the portal's post-save validation dialog.
type DialogSelectors struct {
	Error        string `mapstructure:"error"`
	ErrorBody    string `mapstructure:"error_body"`
	ErrorDismiss string `mapstructure:"error_dismiss"`
}

// HotelSelectors are per-row descriptor templates for the nightly breakdown
// table; %d is the zero-based row index.
type HotelSelectors struct {
	RowType        string `mapstructure:"row_type"`
	RowTypeValue   string `mapstructure:"row_type_value"`
	RowDate        string `mapstructure:"row_date"`
	RowDailyAmount string `mapstructure:"row_daily_amount"`
	RowDays        string `mapstructure:"row_days"`
	RowAmount      string `mapstructure:"row_amount"`
}

// LoginSelectors mark elements that only render once the operator is
// authenticated.
type LoginSelectors struct {
	Indicators []string `mapstructure:"indicators"`
	SSOButton  string   `mapstructure:"sso_button"`
}

// SetDefaults installs every default into a viper instance. Selector
// defaults mirror the portal markup this tool was built against.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("portal.headless", false)
	v.SetDefault("portal.profile", "~/.autoexpense/browser")
	v.SetDefault("portal.login_wait", time.Minute)

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o")

	v.SetDefault("receipts.extensions", []string{".jpg", ".jpeg", ".png", ".heic"})

	v.SetDefault("fill.max_attempts", 3)
	v.SetDefault("fill.retry_delay", 500*time.Millisecond)
	v.SetDefault("fill.field_timeout", 2*time.Second)
	v.SetDefault("fill.dropdown_timeout", 5*time.Second)
	v.SetDefault("fill.upload_timeout", 60*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.journal", "autoexpense.log")

	v.SetDefault("portal.selectors.buttons.create_item", "span.xrk:has-text('Create Item')")
	v.SetDefault("portal.selectors.buttons.create_another", "a.xrg[role='button']:has(span.xrk:has-text('Create Another'))")
	v.SetDefault("portal.selectors.buttons.create_another_seed", "text=Create Expense Item")
	v.SetDefault("portal.selectors.buttons.save_and_close", "div[id$='SaveAndCloseButton']")
	v.SetDefault("portal.selectors.buttons.save_and_close_seed", "a.xrg[role='button']:has(span.xrk:has-text('Create Another'))")
	v.SetDefault("portal.selectors.buttons.create_report", "a:has(svg[aria-label='Create Report'])")
	v.SetDefault("portal.selectors.buttons.add_row", "a[title='Add Row']")

	v.SetDefault("portal.selectors.fields.expense_type", "select[id*='ExpenseTypeId']")
	v.SetDefault("portal.selectors.fields.amount", "input[id*='ReceiptAmount']")
	v.SetDefault("portal.selectors.fields.date", "input[id*='StartDate']")
	v.SetDefault("portal.selectors.fields.merchant", "input[id*='Merchant']")
	v.SetDefault("portal.selectors.fields.description", "input[id*='Description'], textarea[id*='Description']")
	v.SetDefault("portal.selectors.fields.purpose", "input[id*='purpose' i]")
	v.SetDefault("portal.selectors.fields.attendee_count", "input[id*='numberOfAttendees']")
	v.SetDefault("portal.selectors.fields.attendee_names", "input[id*='attendeesMeals']")
	v.SetDefault("portal.selectors.fields.flight_type", "select[id*='TravelType']")
	v.SetDefault("portal.selectors.fields.flight_class", "select[id*='TicketClassCode']")
	v.SetDefault("portal.selectors.fields.ticket_number", "input[id*='TicketNumber']")
	v.SetDefault("portal.selectors.fields.departure_city", "input[id*='DestinationFrom']")
	v.SetDefault("portal.selectors.fields.arrival_city", "input[id*='DestinationTo']")
	v.SetDefault("portal.selectors.fields.passenger_name", "input[id*='PassengerName']")
	v.SetDefault("portal.selectors.fields.agency", "input[id*='Agency']")

	v.SetDefault("portal.selectors.attachments.drop_zones", []string{
		"[id*='pglDropZone']", "[id*='cilDzMsg']", "a[title='Add File']",
	})
	v.SetDefault("portal.selectors.attachments.add_file", "a[title='Add File']")
	v.SetDefault("portal.selectors.attachments.hidden_input", "input[type='file'][id$='dzHfile']")
	v.SetDefault("portal.selectors.attachments.list", "div[title='Attachment List']")
	v.SetDefault("portal.selectors.attachments.empty_text", "No attachments to display")

	v.SetDefault("portal.selectors.reports.open_marker", "span.x2ic:has-text('Not Submitted')")
	v.SetDefault("portal.selectors.reports.item_row", "div.xjb[data-afrrk]")
	v.SetDefault("portal.selectors.reports.item_date", "span.xnk")
	v.SetDefault("portal.selectors.reports.item_amount", "span.xmu")
	v.SetDefault("portal.selectors.reports.item_merchant", "span[id*='otn'] span.x25")
	v.SetDefault("portal.selectors.reports.item_description", "textarea[id*='outputText']")

	v.SetDefault("portal.selectors.dialogs.error", "div[id$='msgDlg']")
	v.SetDefault("portal.selectors.dialogs.error_body", "div[id$='msgDlg::_cnt']")
	v.SetDefault("portal.selectors.dialogs.error_dismiss", "button[id$='msgDlg::cancel']")

	v.SetDefault("portal.selectors.hotel.row_type", "select[id*='itemTbl:%d:ChildExpenseTypeId']")
	v.SetDefault("portal.selectors.hotel.row_type_value", "7")
	v.SetDefault("portal.selectors.hotel.row_date", "input[id*='itemTbl:%d:ChildStartDate']")
	v.SetDefault("portal.selectors.hotel.row_daily_amount", "input[id*='itemTbl:%d:ChildDailyAmountProf']")
	v.SetDefault("portal.selectors.hotel.row_days", "input[id*='itemTbl:%d:ChildNumberOfDaysProf']")
	v.SetDefault("portal.selectors.hotel.row_amount", "input[id*='itemTbl:%d:ChildReceiptAmountAddSub']")

	v.SetDefault("portal.selectors.login.indicators", []string{
		"text=Expense Reports",
		"text=Travel and Expenses",
		"text=Create Report",
		"text=Available Expense Items",
	})

	v.SetDefault("expense_types", defaultExpenseTypes())
}

// Load unmarshals the already-initialized viper state into a Config.
func Load() (*Config, error) {
	SetDefaults(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidConfig, err)
	}

	cfg.Portal.Profile = ExpandPath(cfg.Portal.Profile)
	cfg.Receipts.Folder = ExpandPath(cfg.Receipts.Folder)
	cfg.Receipts.LastFolder = ExpandPath(cfg.Receipts.LastFolder)
	return &cfg, nil
}

// Validate checks the settings a live (non-dry) run cannot do without.
func (c *Config) Validate(dryRun bool) error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("%w: llm.api_key", common.ErrMissingConfig)
	}
	if !dryRun && c.Portal.URL == "" {
		return fmt.Errorf("%w: portal.url", common.ErrMissingConfig)
	}
	return nil
}

// SaveLastFolder persists the folder preference for the next run. Failure is
// not fatal to the run that just completed.
func SaveLastFolder(folder string) error {
	viper.Set("receipts.last_folder", folder)
	if err := viper.WriteConfig(); err != nil {
		return fmt.Errorf("saving last folder: %w", err)
	}
	return nil
}

// LabelForKey returns the portal label for an extractor type key, falling
// back to the key itself for unknown types.
func (c *Config) LabelForKey(key string) string {
	for _, t := range c.Types {
		if t.Key == key {
			return t.Label
		}
	}
	return key
}

func defaultExpenseTypes() []map[string]any {
	return []map[string]any{
		{"key": "MEAL", "label": "Meals-Employee Only", "keywords": []string{"restaurant", "cafe", "food", "coffee", "lunch", "dinner"}},
		{"key": "AIRFARE", "label": "Travel-Airfare", "keywords": []string{"airline", "flight", "ticket", "boarding"}},
		{"key": "HOTEL", "label": "Travel-Hotel Accommodation", "keywords": []string{"hotel", "inn", "resort", "lodging", "nights"}},
		{"key": "TAXI", "label": "Travel-Ground Transportation", "keywords": []string{"taxi", "uber", "lyft", "rideshare", "train", "metro"}},
		{"key": "OTHER", "label": "Miscellaneous Other", "keywords": []string{}},
	}
}
