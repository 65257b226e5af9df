package locators

// Android package names and UI locators for the automated apps,
// collected here so agent goals and device checks share one source.

// Application packages
const LINKEDIN_PACKAGE = "com.linkedin.android"
const NAUKRI_PACKAGE = "naukriApp.appModules.login"
const INDEED_PACKAGE = "com.indeed.android.jobsearch"
const UNSTOP_PACKAGE = "com.unstop"
const WHATSAPP_PACKAGE = "com.whatsapp"
const GMAIL_PACKAGE = "com.google.android.gm"

// LinkedIn
const LINKEDIN_JOBS_TAB = "Jobs"
const LINKEDIN_SEARCH_BAR_ID = "com.linkedin.android:id/search_bar_text"
const LINKEDIN_EASY_APPLY_LABEL = "Easy Apply"
const LINKEDIN_SUBMITTED_XPATH = "//node[contains(@text, 'Application submitted') or contains(@text, 'Application sent')]"

// Naukri
const NAUKRI_SEARCH_LABEL = "Search jobs here"
const NAUKRI_APPLY_LABEL = "Apply"
const NAUKRI_APPLIED_XPATH = "//node[contains(@text, 'Successfully applied') or contains(@text, 'Applied')]"

// Indeed
const INDEED_SEARCH_LABEL = "Search jobs"
const INDEED_EASY_APPLY_LABEL = "Easily apply"
const INDEED_SUBMITTED_XPATH = "//node[contains(@text, 'Application submitted')]"

// Unstop
const UNSTOP_SEARCH_LABEL = "Search Opportunities"
const UNSTOP_REGISTER_LABEL = "Register"

// WhatsApp
const WHATSAPP_SEARCH_ID = "com.whatsapp:id/menuitem_search"
const WHATSAPP_CHAT_LIST_ID = "com.whatsapp:id/conversations_row_contact_name"
const WHATSAPP_MESSAGE_TEXT_ID = "com.whatsapp:id/message_text"

// Gmail
const GMAIL_SEARCH_LABEL = "Search in mail"
const GMAIL_CONVERSATION_LIST_ID = "com.google.android.gm:id/conversation_list_view"
